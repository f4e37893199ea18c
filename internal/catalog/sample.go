package catalog

import _ "embed"

//go:embed exams.sample.json
var sampleExams []byte

// Sample returns the bundled sample deck, for users who want to try
// the app before importing their own exams.json.
func Sample() []byte {
	return sampleExams
}
