package domain

import "testing"

func TestRelationshipKind(t *testing.T) {
	cases := []struct {
		typeID string
		want   EdgeKind
		ok     bool
	}{
		{RelTypeIsA, EdgeIsA, true},
		{RelTypeAssociatedWith, EdgeAssociatedWith, true},
		{RelTypeDueTo, EdgeAssociatedWith, true},
		{RelTypeAssociatedFinding, EdgeAssociatedWith, true},
		{"363698007", "", false}, // finding site is not materialized
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := RelationshipKind(tc.typeID)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("RelationshipKind(%q)=(%q,%v) want (%q,%v)", tc.typeID, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDescriptionTypeLabel(t *testing.T) {
	if got := DescriptionTypeLabel(DescriptionTypeIDFSN); got != DescriptionTypeFSN {
		t.Fatalf("fsn=%q", got)
	}
	if got := DescriptionTypeLabel("FSN"); got != DescriptionTypeFSN {
		t.Fatalf("label passthrough=%q", got)
	}
	if got := DescriptionTypeLabel(DescriptionTypeIDSynonym); got != DescriptionTypeSynonym {
		t.Fatalf("synonym=%q", got)
	}
	if got := DescriptionTypeLabel(" 123 "); got != "123" {
		t.Fatalf("unknown=%q", got)
	}
}
