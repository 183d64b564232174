package model

import "testing"

func TestDifficultyPoints(t *testing.T) {
	cases := []struct {
		difficulty ChallengeDifficulty
		points     int
	}{
		{DifficultyNoob, 10},
		{DifficultyMid, 25},
		{DifficultyArdu, 50},
		{DifficultyFou, 100},
		{DifficultyCybersec, 200},
	}
	for _, tc := range cases {
		if got := tc.difficulty.Points(); got != tc.points {
			t.Errorf("%s: expected %d points, got %d", tc.difficulty, tc.points, got)
		}
	}
}

func TestDifficultyIsValid(t *testing.T) {
	for _, d := range []ChallengeDifficulty{DifficultyNoob, DifficultyMid, DifficultyArdu, DifficultyFou, DifficultyCybersec} {
		if !d.IsValid() {
			t.Errorf("%s should be valid", d)
		}
	}
	for _, d := range []ChallengeDifficulty{"", "easy", "hard", "NOOB"} {
		if d.IsValid() {
			t.Errorf("%q should be invalid", d)
		}
		if d.Points() != 0 {
			t.Errorf("%q should be worth 0 points", d)
		}
	}
}

func TestCategoryIsValid(t *testing.T) {
	valid := []ChallengeCategory{
		CategoryWeb, CategoryPwn, CategoryCrypto, CategoryForensic,
		CategoryReverse, CategorySteganography, CategoryOSINT, CategoryMisc,
	}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("%s should be valid", c)
		}
	}
	for _, c := range []ChallengeCategory{"", "cooking", "WEB"} {
		if c.IsValid() {
			t.Errorf("%q should be invalid", c)
		}
	}
}
