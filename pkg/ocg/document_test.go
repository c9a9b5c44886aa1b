package ocg

import (
	"errors"
	"testing"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

func draftDocument() models.OCGDocument {
	doc := testDocument()
	doc.Status = DocDraft
	doc.TotalPoints = 14
	return doc
}

func TestAddSection(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	out, err := AddSection(doc, models.OCGSection{
		ID: "secD", Title: "Travel", IsNegotiable: true,
		Alternatives: []models.OCGAlternative{
			{ID: "d-std", Points: 0, IsDefault: true},
			{ID: "d-strong", Points: 3},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Sections) != 4 || out.Sections[3].Order != 4 {
		t.Fatalf("section not appended with order: %+v", out.Sections)
	}
	if out.TotalPoints != 17 {
		t.Fatalf("total points: got %d want 17", out.TotalPoints)
	}
	if len(doc.Sections) != 3 {
		t.Fatal("input snapshot must not change")
	}
}

func TestAddSectionInvariants(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	// Negotiable section with two defaults.
	if _, err := AddSection(doc, models.OCGSection{ID: "x", IsNegotiable: true,
		Alternatives: []models.OCGAlternative{
			{ID: "x1", IsDefault: true}, {ID: "x2", IsDefault: true},
		}}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("two defaults: got %v", err)
	}
	// Non-negotiable section with alternatives.
	if _, err := AddSection(doc, models.OCGSection{ID: "x", IsNegotiable: false,
		Alternatives: []models.OCGAlternative{{ID: "x1", IsDefault: true}}}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("non-negotiable with alternatives: got %v", err)
	}
	// Duplicate id.
	if _, err := AddSection(doc, models.OCGSection{ID: "secA", IsNegotiable: false}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("duplicate section id: got %v", err)
	}
}

func TestMutationRequiresDraft(t *testing.T) {
	t.Parallel()
	doc := testDocument() // Published
	if _, err := AddSection(doc, models.OCGSection{ID: "x"}); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("add on published: got %v", err)
	}
	if _, err := UpdateSection(doc, doc.Sections[0], false); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("update on published: got %v", err)
	}
	if _, err := RemoveSection(doc, "secA"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("remove on published: got %v", err)
	}
	if _, err := AddAlternative(doc, "secA", models.OCGAlternative{ID: "n"}); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("add alternative on published: got %v", err)
	}
}

func TestUpdateSectionDestructiveToggle(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	section := doc.Sections[0]
	section.IsNegotiable = false

	// Without confirmation the destructive toggle is refused.
	if _, err := UpdateSection(doc, section, false); !errors.Is(err, models.ErrConfirmRequired) {
		t.Fatalf("expected ErrConfirmRequired, got %v", err)
	}
	// With confirmation the alternatives are cleared as a side effect.
	out, err := UpdateSection(doc, section, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, _ := findSection(out, "secA")
	if updated.IsNegotiable || len(updated.Alternatives) != 0 {
		t.Fatalf("alternatives should be cleared: %+v", updated)
	}
	if out.TotalPoints != 8 {
		t.Fatalf("total points after clearing secA: got %d want 8", out.TotalPoints)
	}
	if orig, _ := findSection(doc, "secA"); len(orig.Alternatives) != 2 {
		t.Fatal("input snapshot must not change")
	}
}

func TestRemoveSectionReorders(t *testing.T) {
	t.Parallel()
	out, err := RemoveSection(draftDocument(), "secA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(out.Sections))
	}
	for i, s := range out.Sections {
		if s.Order != i+1 {
			t.Fatalf("orders must be compacted: %+v", out.Sections)
		}
	}
	if _, err := RemoveSection(draftDocument(), "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown section: got %v", err)
	}
}

func TestAddAlternative(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	out, err := AddAlternative(doc, "secA", models.OCGAlternative{ID: "a-mid", Title: "Middle", Points: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, _ := findSection(out, "secA")
	if len(section.Alternatives) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(section.Alternatives))
	}
	if orig, _ := findSection(doc, "secA"); len(orig.Alternatives) != 2 {
		t.Fatal("input snapshot must not change")
	}

	// A new default demotes the old one; exactly one default remains.
	out, err = AddAlternative(out, "secA", models.OCGAlternative{ID: "a-new-default", Points: 1, IsDefault: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, _ = findSection(out, "secA")
	defaults := 0
	for _, alt := range section.Alternatives {
		if alt.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}

	if _, err := AddAlternative(doc, "secC", models.OCGAlternative{ID: "c1"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("alternative on non-negotiable section: got %v", err)
	}
	if _, err := AddAlternative(doc, "secA", models.OCGAlternative{ID: "a-neg", Points: -1}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("negative points: got %v", err)
	}
}

func TestFirstAlternativeBecomesDefault(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	doc, err := AddSection(doc, models.OCGSection{ID: "secD", IsNegotiable: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, err = AddAlternative(doc, "secD", models.OCGAlternative{ID: "d1", Points: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, _ := findSection(doc, "secD")
	if !section.Alternatives[0].IsDefault {
		t.Fatal("first alternative of a section must become the default")
	}
}

func TestUpdateAlternative(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	out, err := UpdateAlternative(doc, "secA", models.OCGAlternative{ID: "a-strong", Title: "Strong", Points: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, _ := findSection(out, "secA")
	if alt, _ := findAlternative(section, "a-strong"); alt.Points != 5 {
		t.Fatalf("points not updated: %+v", alt)
	}
	if out.TotalPoints != 13 {
		t.Fatalf("total points: got %d want 13", out.TotalPoints)
	}

	// Demoting the sole default is illegal.
	if _, err := UpdateAlternative(doc, "secA", models.OCGAlternative{ID: "a-std", IsDefault: false}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("demoting default: got %v", err)
	}
	// Promoting a new default demotes the previous one.
	out, err = UpdateAlternative(doc, "secA", models.OCGAlternative{ID: "a-strong", Points: 6, IsDefault: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, _ = findSection(out, "secA")
	std, _ := findAlternative(section, "a-std")
	strong, _ := findAlternative(section, "a-strong")
	if std.IsDefault || !strong.IsDefault {
		t.Fatalf("default should move: std=%v strong=%v", std.IsDefault, strong.IsDefault)
	}
}

func TestRemoveAlternative(t *testing.T) {
	t.Parallel()
	doc := draftDocument()
	out, err := RemoveAlternative(doc, "secA", "a-strong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section, _ := findSection(out, "secA")
	if len(section.Alternatives) != 1 {
		t.Fatalf("expected 1 alternative, got %d", len(section.Alternatives))
	}
	if out.TotalPoints != 8 {
		t.Fatalf("total points: got %d want 8", out.TotalPoints)
	}
	// The default cannot be removed while others remain.
	if _, err := RemoveAlternative(doc, "secA", "a-std"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("removing default: got %v", err)
	}
	if _, err := RemoveAlternative(doc, "secA", "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown alternative: got %v", err)
	}
}
