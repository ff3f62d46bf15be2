// Package election holds the data model for district election results and the
// pure transformations applied to it.
//
// Scraped town rows arrive as strings. The package builds the CSV header from the
// discovered party list, coerces every numeric column into an integer and checks
// that each town reports one vote count per party. It also resolves the output
// filename against the district name found on the listing page.
package election
