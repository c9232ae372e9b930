// Package workbook stores the editor's page configuration and per-page record tables.
//
// Both stores rewrite whole values: the Configuration is one record, and each
// (user, page) record table is one record. Deleting a page from the
// Configuration leaves its record table in place.
package workbook
