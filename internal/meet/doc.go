// Package meet defines the entities extracted from the swim meet websites.
//
// Competitions, clubs, swimmers, heats, results, qualification times and
// timeline engagements are plain values: scrapers build them once from a page
// and never mutate them afterwards. A refetch replaces the whole value. Struct
// tags carry both the JSON contract expected by consumers and the validation
// rules applied before an entity leaves a scraper.
package meet
