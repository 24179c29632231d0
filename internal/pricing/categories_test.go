package pricing

import "testing"

func TestClassify(t *testing.T) {
	if Classify(CategoryPersonnel) != BucketPersonnel {
		t.Fatal("personnel category must classify as personnel")
	}
	if Classify(CategoryTransport) != BucketTransport {
		t.Fatal("transport category must classify as transport")
	}
	if Classify("Zvuková technika") != BucketEquipment {
		t.Fatal("sound category must classify as equipment")
	}
	// unknown categories fail open into equipment
	if Classify("Pyrotechnika") != BucketEquipment {
		t.Fatal("unknown category must classify as equipment")
	}
}

func TestCategoryRank(t *testing.T) {
	cats := Categories()
	if len(cats) == 0 {
		t.Fatal("category list is empty")
	}
	for i, c := range cats {
		if CategoryRank(c) != i {
			t.Fatalf("rank of %q = %d, want %d", c, CategoryRank(c), i)
		}
	}
	if CategoryRank("Pyrotechnika") != len(cats) {
		t.Fatal("unknown category must rank last")
	}
	if cats[len(cats)-1] != CategoryTransport {
		t.Fatal("transport must be the final category")
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	cats := Categories()
	cats[0] = "mutated"
	if Categories()[0] == "mutated" {
		t.Fatal("Categories must not expose internal state")
	}
}
