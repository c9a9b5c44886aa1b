package ocg

import (
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

// Draft-only document mutation. Every operation returns a new document copy;
// the input snapshot is never touched.

func AddSection(doc models.OCGDocument, section models.OCGSection) (models.OCGDocument, error) {
	if doc.Status != DocDraft {
		return doc, models.ErrInvalidTransition
	}
	if section.ID == "" {
		return doc, models.ErrInvalidInput
	}
	if _, exists := findSection(doc, section.ID); exists {
		return doc, models.ErrInvalidInput
	}
	if err := validateSection(section); err != nil {
		return doc, err
	}
	section.Order = len(doc.Sections) + 1
	doc = cloneDocument(doc)
	doc.Sections = append(doc.Sections, section)
	doc.TotalPoints = totalPoints(doc)
	return doc, nil
}

// UpdateSection replaces a section. Disabling negotiability on a section that
// still has alternatives is destructive: it clears them, and the caller must
// set confirmDestructive or the call fails with ErrConfirmRequired.
func UpdateSection(doc models.OCGDocument, section models.OCGSection, confirmDestructive bool) (models.OCGDocument, error) {
	if doc.Status != DocDraft {
		return doc, models.ErrInvalidTransition
	}
	existing, ok := findSection(doc, section.ID)
	if !ok {
		return doc, models.ErrNotFound
	}
	if !section.IsNegotiable && len(existing.Alternatives) > 0 {
		if !confirmDestructive {
			return doc, models.ErrConfirmRequired
		}
		section.Alternatives = nil
	}
	if err := validateSection(section); err != nil {
		return doc, err
	}
	section.Order = existing.Order
	doc = cloneDocument(doc)
	for i := range doc.Sections {
		if doc.Sections[i].ID == section.ID {
			doc.Sections[i] = section
			break
		}
	}
	doc.TotalPoints = totalPoints(doc)
	return doc, nil
}

func RemoveSection(doc models.OCGDocument, sectionID string) (models.OCGDocument, error) {
	if doc.Status != DocDraft {
		return doc, models.ErrInvalidTransition
	}
	if _, ok := findSection(doc, sectionID); !ok {
		return doc, models.ErrNotFound
	}
	doc = cloneDocument(doc)
	kept := doc.Sections[:0]
	for _, s := range doc.Sections {
		if s.ID != sectionID {
			kept = append(kept, s)
		}
	}
	doc.Sections = kept
	for i := range doc.Sections {
		doc.Sections[i].Order = i + 1
	}
	doc.TotalPoints = totalPoints(doc)
	return doc, nil
}

func AddAlternative(doc models.OCGDocument, sectionID string, alt models.OCGAlternative) (models.OCGDocument, error) {
	if doc.Status != DocDraft {
		return doc, models.ErrInvalidTransition
	}
	section, ok := findSection(doc, sectionID)
	if !ok {
		return doc, models.ErrNotFound
	}
	if !section.IsNegotiable || alt.ID == "" || alt.Points < 0 {
		return doc, models.ErrInvalidInput
	}
	if _, exists := findAlternative(section, alt.ID); exists {
		return doc, models.ErrInvalidInput
	}
	section.Alternatives = append([]models.OCGAlternative(nil), section.Alternatives...)
	if alt.IsDefault {
		for i := range section.Alternatives {
			section.Alternatives[i].IsDefault = false
		}
	} else if len(section.Alternatives) == 0 {
		// The first alternative of a section is the default by construction.
		alt.IsDefault = true
	}
	section.Alternatives = append(section.Alternatives, alt)
	return replaceSection(doc, section)
}

func UpdateAlternative(doc models.OCGDocument, sectionID string, alt models.OCGAlternative) (models.OCGDocument, error) {
	if doc.Status != DocDraft {
		return doc, models.ErrInvalidTransition
	}
	section, ok := findSection(doc, sectionID)
	if !ok {
		return doc, models.ErrNotFound
	}
	existing, ok := findAlternative(section, alt.ID)
	if !ok {
		return doc, models.ErrNotFound
	}
	if alt.Points < 0 {
		return doc, models.ErrInvalidInput
	}
	if existing.IsDefault && !alt.IsDefault {
		return doc, models.ErrInvalidInput
	}
	section.Alternatives = append([]models.OCGAlternative(nil), section.Alternatives...)
	if alt.IsDefault && !existing.IsDefault {
		for i := range section.Alternatives {
			section.Alternatives[i].IsDefault = false
		}
	}
	for i := range section.Alternatives {
		if section.Alternatives[i].ID == alt.ID {
			section.Alternatives[i] = alt
			break
		}
	}
	return replaceSection(doc, section)
}

func RemoveAlternative(doc models.OCGDocument, sectionID, altID string) (models.OCGDocument, error) {
	if doc.Status != DocDraft {
		return doc, models.ErrInvalidTransition
	}
	section, ok := findSection(doc, sectionID)
	if !ok {
		return doc, models.ErrNotFound
	}
	alt, ok := findAlternative(section, altID)
	if !ok {
		return doc, models.ErrNotFound
	}
	if alt.IsDefault && len(section.Alternatives) > 1 {
		return doc, models.ErrInvalidInput
	}
	kept := make([]models.OCGAlternative, 0, len(section.Alternatives))
	for _, a := range section.Alternatives {
		if a.ID != altID {
			kept = append(kept, a)
		}
	}
	section.Alternatives = kept
	return replaceSection(doc, section)
}

func validateSection(section models.OCGSection) error {
	if !section.IsNegotiable {
		if len(section.Alternatives) > 0 {
			return models.ErrInvalidInput
		}
		return nil
	}
	defaults := 0
	for _, alt := range section.Alternatives {
		if alt.Points < 0 {
			return models.ErrInvalidInput
		}
		if alt.IsDefault {
			defaults++
		}
	}
	if len(section.Alternatives) > 0 && defaults != 1 {
		return models.ErrInvalidInput
	}
	return nil
}

func replaceSection(doc models.OCGDocument, section models.OCGSection) (models.OCGDocument, error) {
	doc = cloneDocument(doc)
	for i := range doc.Sections {
		if doc.Sections[i].ID == section.ID {
			doc.Sections[i] = section
			break
		}
	}
	doc.TotalPoints = totalPoints(doc)
	return doc, nil
}

// totalPoints is the maximum selectable point load of the document: the
// highest-cost alternative of every negotiable section.
func totalPoints(doc models.OCGDocument) int {
	total := 0
	for _, s := range doc.Sections {
		if !s.IsNegotiable {
			continue
		}
		max := 0
		for _, alt := range s.Alternatives {
			if alt.Points > max {
				max = alt.Points
			}
		}
		total += max
	}
	return total
}

func cloneDocument(doc models.OCGDocument) models.OCGDocument {
	sections := make([]models.OCGSection, len(doc.Sections))
	for i, s := range doc.Sections {
		alts := make([]models.OCGAlternative, len(s.Alternatives))
		copy(alts, s.Alternatives)
		s.Alternatives = alts
		sections[i] = s
	}
	doc.Sections = sections
	return doc
}
