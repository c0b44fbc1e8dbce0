// Package spreadsheet extracts survey questions from uploaded Excel
// workbooks and writes translation results back out as xlsx or CSV. It is
// a thin layer over excelize.
package spreadsheet
