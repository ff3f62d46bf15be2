// Package scraper fetches and parses district election result pages.
//
// A run starts at a district listing page, which links every town in the district
// through its "cislo" cells. The first town's detail page supplies the party list;
// every town's detail page then supplies registered voters, envelopes, valid votes
// and one vote count per party. Party names and vote counts are spread across a
// variable number of side-by-side tables, so both are collected by probing table
// blocks t1, t2, ... until a block has no cells. Pages are fetched strictly one at
// a time and any missing element fails the whole run.
package scraper
