// Package harness runs conformance scenarios for query specs.
//
// A scenario seeds a fresh in-memory database, runs one query through the
// pager and checks what happened: the compiled fragments, the commands sent
// to the database, the total and the rows of the page.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: adults_by_name
//	description: "Adults sorted by name, second page"
//	table: people
//	key: ID
//	fixtures:
//	  - table: people
//	    rows:
//	      - {ID: 1, Name: Ann, Email: ann@example.com, Age: 41, Status: 1, Score: 91.5, Active: 1}
//	query:
//	  filter:
//	    groups:
//	      - rules:
//	          - {field: Age, operator: GreaterOrEqual, values: 18}
//	  sort:
//	    rules:
//	      - {field: Name, direction: Descending}
//	  page: {page_number: 2, page_size: 4}
//	assertions:
//	  - type: where
//	    sql: "([Age] >= @p1)"
//	  - type: total
//	    count: 6
//	  - type: page_keys
//	    keys: [1, 3]
//
// A scenario without a page section reads the first page of
// DefaultPageSize rows.
//
// # Assertion Types
//
//   - where: the WHERE fragment equals sql
//   - order_by: the ORDER BY fragment (with the key column appended) equals sql
//   - total: the row count equals count
//   - page_keys: the key column of the page rows equals keys, in order
//   - row: the row whose key equals key contains every expect field
//   - error: compiling or paging failed with the filter error code
//
// Numbers compare by value, so an expected 55 matches a REAL column holding
// 55.0.
//
// # Golden Files
//
// RunWithGolden snapshots the commands a scenario ran and the rows it read
// under testdata/golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
