package retrieval

import "testing"

func TestCoChangeMatrix_BoostForFrequentPair(t *testing.T) {
	commits := [][]string{
		{"a.go", "b.go"},
		{"a.go", "b.go"},
		{"a.go", "b.go"},
		{"a.go", "c.go"},
	}
	m := NewCoChangeMatrix(commits, 0, 0)

	boostAB := m.Boost("b.go", []string{"a.go"})
	boostAC := m.Boost("c.go", []string{"a.go"})
	if boostAB <= boostAC {
		t.Fatalf("expected b.go (3 shared commits) to boost more than c.go (1 shared), got %f vs %f", boostAB, boostAC)
	}
}

func TestCoChangeMatrix_BelowMinSupportIsZero(t *testing.T) {
	commits := [][]string{{"a.go", "b.go"}}
	m := NewCoChangeMatrix(commits, 0, 0)
	if boost := m.Boost("b.go", []string{"a.go"}); boost != 0 {
		t.Fatalf("expected 0 boost below min support, got %f", boost)
	}
}

func TestCoChangeMatrix_ExcludesOversizedCommits(t *testing.T) {
	huge := make([]string, coChangeMaxFilesPerCommit+1)
	for i := range huge {
		huge[i] = string(rune('a' + i%26))
	}
	commits := [][]string{huge, huge, huge}
	m := NewCoChangeMatrix(commits, 0, 0)
	if boost := m.Boost(huge[1], []string{huge[0]}); boost != 0 {
		t.Fatalf("expected oversized commits to be excluded, got boost %f", boost)
	}
}

func TestCoChangeMatrix_SingleFileCommitIgnored(t *testing.T) {
	commits := [][]string{{"a.go"}, {"a.go"}, {"a.go"}}
	m := NewCoChangeMatrix(commits, 0, 0)
	if boost := m.Boost("a.go", []string{"a.go"}); boost != 0 {
		t.Fatalf("expected single-file commits to contribute no pairs, got %f", boost)
	}
}

func TestCoChangeMatrix_NilMatrixIsZero(t *testing.T) {
	var m *CoChangeMatrix
	if boost := m.Boost("a.go", []string{"b.go"}); boost != 0 {
		t.Fatalf("expected 0 boost for nil matrix, got %f", boost)
	}
}

func TestCoChangeMatrix_BoostCapped(t *testing.T) {
	commits := make([][]string, 0, 50)
	for i := 0; i < 50; i++ {
		commits = append(commits, []string{"a.go", "b.go"})
	}
	m := NewCoChangeMatrix(commits, 0, 0)
	if boost := m.Boost("b.go", []string{"a.go"}); boost > coChangeDefaultMaxBoost {
		t.Fatalf("expected boost capped at %f, got %f", coChangeDefaultMaxBoost, boost)
	}
}

func TestCoChangeMatrix_CustomWeightAndCapAreHonored(t *testing.T) {
	commits := make([][]string, 0, 50)
	for i := 0; i < 50; i++ {
		commits = append(commits, []string{"a.go", "b.go"})
	}
	m := NewCoChangeMatrix(commits, 1.0, 0.05)
	if boost := m.Boost("b.go", []string{"a.go"}); boost != 0.05 {
		t.Fatalf("expected boost capped at configured 0.05, got %f", boost)
	}
}
