// Package jsondb provides an in-memory query evaluator over untyped records.
//
// # Overview
//
// [Engine] holds an ordered, read-only dataset of [Record] values and answers
// [Engine.Find] and [Engine.Count]. A [Query] is evaluated in a fixed order:
// filter, stable sort, skip, limit, then relationship expansion.
//
// # Filters
//
// A [Filter] is a conjunction of [Condition] values, usually built with
// [ParseFilter] from a filter document:
//
//	{"tags": {"$in": [2, 3]}, "views": {"$gte": 10}, "status": "published"}
//
// Supported operators are $in, $gte, $lte, $ne, $exists, $regex and $eq (a
// literal value is an implicit $eq). Unknown operators are rejected.
//
// # Sorting
//
// Sorting is stable. Absent values sort last in both directions; strings use
// locale collation.
//
// # Relationships
//
// A [Relationship] replaces nothing in the dataset: on each returned copy it
// sets Key to the records a collaborator [Finder] returns for
// {RightKey: {$in: row[LeftKey]}}.
package jsondb
