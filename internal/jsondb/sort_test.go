package jsondb

import (
	"reflect"
	"testing"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func TestCompare(t *testing.T) {
	coll := collate.New(language.Und)
	tests := []struct {
		name     string
		a, b     any
		aok, bok bool
		dir      SortDir
		want     int
	}{
		{"both absent", nil, nil, false, false, SortAsc, 0},
		{"a absent asc", nil, 1, false, true, SortAsc, 1},
		{"a absent desc", nil, 1, false, true, SortDesc, 1},
		{"b absent asc", 1, nil, true, false, SortAsc, -1},
		{"b absent desc", 1, nil, true, false, SortDesc, -1},
		{"numbers asc", 1, 2, true, true, SortAsc, -1},
		{"numbers desc", 1, 2, true, true, SortDesc, 1},
		{"equal numbers desc", float64(2), 2, true, true, SortDesc, 0},
		{"strings asc", "apple", "Banana", true, true, SortAsc, -1},
		{"strings desc", "apple", "Banana", true, true, SortDesc, 1},
		{"bools", false, true, true, true, SortAsc, -1},
		{"incomparable", true, 1, true, true, SortAsc, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compare(coll, tt.a, tt.b, tt.aok, tt.bok, tt.dir); got != tt.want {
				t.Errorf("compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSortRecords(t *testing.T) {
	coll := collate.New(language.Und)
	values := func(records []Record, field string) []any {
		out := make([]any, len(records))
		for i, r := range records {
			out[i] = r[field]
		}
		return out
	}

	t.Run("absent last ascending", func(t *testing.T) {
		records := []Record{{"v": 1}, {"v": nil}, {"v": 3}}
		sortRecords(coll, records, &Sort{Name: "v", Dir: SortAsc})
		if got, want := values(records, "v"), []any{1, 3, nil}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("absent last descending", func(t *testing.T) {
		records := []Record{{"v": 1}, {}, {"v": 3}}
		sortRecords(coll, records, &Sort{Name: "v", Dir: SortDesc})
		if got, want := values(records, "v"), []any{3, 1, nil}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("locale strings", func(t *testing.T) {
		records := []Record{{"s": "banana"}, {"s": "apple"}, {"s": "Cherry"}}
		sortRecords(coll, records, &Sort{Name: "s", Dir: SortAsc})
		if got, want := values(records, "s"), []any{"apple", "banana", "Cherry"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		sortRecords(coll, records, &Sort{Name: "s", Dir: SortDesc})
		if got, want := values(records, "s"), []any{"Cherry", "banana", "apple"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("stable", func(t *testing.T) {
		records := []Record{
			{"k": 2, "id": "a"}, {"k": 1, "id": "b"}, {"k": 2, "id": "c"}, {"k": 1, "id": "d"}, {"id": "e"}, {"id": "f"},
		}
		sortRecords(coll, records, &Sort{Name: "k", Dir: SortDesc})
		if got, want := values(records, "id"), []any{"a", "c", "b", "d", "e", "f"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestSortValidate(t *testing.T) {
	if err := (&Sort{Name: "v", Dir: SortAsc}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&Sort{Dir: SortAsc}).Validate(); err == nil {
		t.Error("expected error for missing name")
	}
	if err := (&Sort{Name: "v", Dir: "up"}).Validate(); err == nil {
		t.Error("expected error for unknown direction")
	}
}
