// Package upload validates uploaded spreadsheet files before anything reads
// them: extension allow-list, size limit and a content sniff for the OOXML
// zip container.
package upload
