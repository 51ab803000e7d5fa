// Package paging runs filtered, sorted, windowed queries against a
// relational source.
//
// A Pager composes the textual compilers from internal/sqlgen into two
// commands per request:
//
//	SELECT COUNT(*) FROM [people] WHERE ([Age] >= @p1)
//	SELECT * FROM [people] WHERE ([Age] >= @p1) ORDER BY [Name] ASC, [ID] ASC LIMIT @p2 OFFSET @p3
//
// The count runs only while the caller's filter.Pagination has no Total;
// once set, the total is reused for every later page until ClearTotal.
//
// The table key is appended to every ORDER BY so that consecutive pages
// never overlap or skip rows, whatever sort the caller asked for.
//
// A Pager is not safe for concurrent use: it reuses one parameter buffer and
// writes the total into the caller's Pagination.
package paging
