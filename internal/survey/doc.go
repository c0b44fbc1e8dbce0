// Package survey holds the domain types shared by the spreadsheet reader,
// the translation orchestrator and the HTTP layer: a Question read from an
// uploaded file and the Record produced once the translation API answered.
package survey
