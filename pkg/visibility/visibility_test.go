package visibility

import (
	"testing"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

func rule(dependsOn string, condition model.Condition, comparand any) *model.Visibility {
	return &model.Visibility{DependsOn: dependsOn, Condition: condition, Comparand: comparand}
}

func TestNoClauseIsAlwaysVisible(t *testing.T) {
	t.Parallel()

	field := model.FieldSchema{ID: "name", Kind: model.FieldKindText}
	for _, values := range []model.FormValues{nil, {}, {"other": "x"}} {
		if !IsVisible(field, values) {
			t.Fatalf("field without visibility clause hidden for values %v", values)
		}
	}
}

func TestAbsentControllingValueFailsClosed(t *testing.T) {
	t.Parallel()

	field := model.FieldSchema{
		ID:         "state",
		Visibility: rule("country", model.ConditionNotEquals, ""),
	}
	if IsVisible(field, model.FormValues{}) {
		t.Fatal("expected hidden when controlling value is absent")
	}
	if IsVisible(field, model.FormValues{"country": nil}) {
		t.Fatal("expected hidden when controlling value is nil")
	}
}

func TestEqualsWithSequenceComparandIsMembership(t *testing.T) {
	t.Parallel()

	comparand := []any{"smoker", "former_smoker"}
	field := model.FieldSchema{Visibility: rule("smoking_status", model.ConditionEquals, comparand)}

	if !IsVisible(field, model.FormValues{"smoking_status": "smoker"}) {
		t.Fatal("member value should be visible")
	}
	if IsVisible(field, model.FormValues{"smoking_status": "never"}) {
		t.Fatal("non-member value should be hidden")
	}
}

func TestNotEqualsWithSequenceComparand(t *testing.T) {
	t.Parallel()

	field := model.FieldSchema{Visibility: rule("plan", model.ConditionNotEquals, []any{"basic"})}

	if !IsVisible(field, model.FormValues{"plan": "premium"}) {
		t.Fatal("non-member should be visible")
	}
	if IsVisible(field, model.FormValues{"plan": "basic"}) {
		t.Fatal("member should be hidden")
	}
}

func TestContainsRequiresSequenceActualAndMatchingElementType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		actual    any
		comparand any
		want      bool
	}{
		{"string member", []string{"pool", "gym"}, "gym", true},
		{"string non-member", []string{"pool"}, "gym", false},
		{"scalar actual", "gym", "gym", false},
		{"type mismatch", []string{"1", "2"}, float64(1), false},
		{"numeric member", []any{float64(1), float64(2)}, float64(2), true},
	}
	for _, tc := range cases {
		field := model.FieldSchema{Visibility: rule("perks", model.ConditionContains, tc.comparand)}
		if got := IsVisible(field, model.FormValues{"perks": tc.actual}); got != tc.want {
			t.Errorf("%s: IsVisible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNumericComparisons(t *testing.T) {
	t.Parallel()

	gt := model.FieldSchema{Visibility: rule("age", model.ConditionGreaterThan, float64(18))}
	lt := model.FieldSchema{Visibility: rule("age", model.ConditionLessThan, float64(65))}

	if !IsVisible(gt, model.FormValues{"age": float64(21)}) {
		t.Fatal("21 > 18 should be visible")
	}
	if IsVisible(gt, model.FormValues{"age": float64(18)}) {
		t.Fatal("equal bound should be hidden")
	}
	if !IsVisible(lt, model.FormValues{"age": 30}) {
		t.Fatal("int actual should coerce for comparison")
	}
	if IsVisible(gt, model.FormValues{"age": "21"}) {
		t.Fatal("numeric string actual should fail closed")
	}
}

func TestUnknownConditionFailsClosed(t *testing.T) {
	t.Parallel()

	field := model.FieldSchema{Visibility: rule("x", "matches", "y")}
	if IsVisible(field, model.FormValues{"x": "y"}) {
		t.Fatal("unknown condition should hide the field")
	}
}
