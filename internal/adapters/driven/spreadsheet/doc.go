// Package spreadsheet reads and writes XLSX workbooks with excelize.
package spreadsheet
