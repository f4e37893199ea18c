// Package catalog owns the immutable in-memory exam collection and
// the strict boundary validation of the versionless exams.json shape.
// Malformed data fails loudly here and never reaches the session core.
package catalog

import (
	"encoding/json"
	"fmt"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/examdeck/examdeck-backend/internal/model"
)

var validate = govalidator.New()

// Catalog is a resolved, validated set of exam definitions.
type Catalog struct {
	exams []model.ExamDefinition
	byID  map[int]*model.ExamDefinition
}

// Parse decodes and validates an exams.json payload.
func Parse(raw []byte) (*Catalog, error) {
	var doc model.CatalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode exams document: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid exams document: %w", err)
	}
	if err := checkStructure(&doc); err != nil {
		return nil, fmt.Errorf("invalid exams document: %w", err)
	}
	return build(doc.Exams), nil
}

// Empty returns a catalog without exams. The API then reports that an
// import is required, mirroring the upload prompt of the web UI.
func Empty() *Catalog {
	return build(nil)
}

func build(exams []model.ExamDefinition) *Catalog {
	c := &Catalog{
		exams: exams,
		byID:  make(map[int]*model.ExamDefinition, len(exams)),
	}
	for i := range c.exams {
		c.byID[c.exams[i].ExamID] = &c.exams[i]
	}
	return c
}

// checkStructure enforces the relational constraints the struct tags
// cannot express: unique ids and correct answers that actually exist.
func checkStructure(doc *model.CatalogDocument) error {
	examIDs := map[int]bool{}
	for _, exam := range doc.Exams {
		if examIDs[exam.ExamID] {
			return fmt.Errorf("duplicate exam_id %d", exam.ExamID)
		}
		examIDs[exam.ExamID] = true

		questionIDs := map[int]bool{}
		for _, q := range exam.Questions {
			if questionIDs[q.ID] {
				return fmt.Errorf("exam %d: duplicate question id %d", exam.ExamID, q.ID)
			}
			questionIDs[q.ID] = true

			answerIDs := map[int]bool{}
			for _, a := range q.Answers {
				if answerIDs[a.ID] {
					return fmt.Errorf("exam %d question %d: duplicate answer id %d", exam.ExamID, q.ID, a.ID)
				}
				answerIDs[a.ID] = true
			}
			for _, id := range q.CorrectAnswerIDs {
				if !answerIDs[id] {
					return fmt.Errorf("exam %d question %d: correct answer %d is not an option", exam.ExamID, q.ID, id)
				}
			}
		}
	}
	return nil
}

// Get returns the exam with the given id.
func (c *Catalog) Get(examID int) (*model.ExamDefinition, bool) {
	exam, ok := c.byID[examID]
	return exam, ok
}

// Len returns the number of exams.
func (c *Catalog) Len() int { return len(c.exams) }

// Summaries lists the exams for the exam-list screen; finalized maps
// exam id to the stored completed flag.
func (c *Catalog) Summaries(finalized map[int]bool) []model.ExamSummary {
	out := make([]model.ExamSummary, 0, len(c.exams))
	for i := range c.exams {
		out = append(out, model.ExamSummary{
			ExamID:        c.exams[i].ExamID,
			QuestionCount: len(c.exams[i].Questions),
			Finalized:     finalized[c.exams[i].ExamID],
		})
	}
	return out
}
