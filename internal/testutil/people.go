// Package testutil provides fixtures shared by package tests: a Person type
// that maps onto the people table, a fixed dataset, a random generator and
// helpers that seed a database.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
)

// Person is the fixture row. Column names match Go field names so the same
// rule field addresses both the table and the struct.
type Person struct {
	ID       int64   `db:"ID" json:"id"`
	Name     string  `db:"Name" json:"name"`
	Email    string  `db:"Email" json:"email"`
	Age      int     `db:"Age" json:"age"`
	Status   int     `db:"Status" json:"status"`
	Score    float64 `db:"Score" json:"score"`
	Active   bool    `db:"Active" json:"active"`
	Nickname *string `db:"Nickname" json:"nickname,omitempty"`
	Manager  *Person `db:"-" json:"manager,omitempty"`
}

// PeopleSchema creates the people table. It matches the table the store
// ships in its schema.
const PeopleSchema = `CREATE TABLE IF NOT EXISTS people (
	ID       INTEGER PRIMARY KEY,
	Name     TEXT    NOT NULL,
	Email    TEXT    NOT NULL,
	Age      INTEGER NOT NULL,
	Status   INTEGER NOT NULL,
	Score    REAL    NOT NULL,
	Active   INTEGER NOT NULL,
	Nickname TEXT
)`

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// People returns the fixed dataset. Every call builds fresh values.
//
// The set has duplicate ages and statuses so that multi-key sorts need their
// tie-breakers, mixed-case names and emails for like matching, and both nil
// and non-nil Nickname and Manager pointers.
func People() []Person {
	ids := NewIDSource()
	ann := Person{ID: ids.Next(), Name: "Ann", Email: "ann@example.com", Age: 41, Status: 1, Score: 91.5, Active: true, Nickname: Ptr("annie")}
	bob := Person{ID: ids.Next(), Name: "Bob", Email: "bob@example.org", Age: 17, Status: 2, Score: 55, Active: false}
	al := Person{ID: ids.Next(), Name: "Alice", Email: "ALICE@Example.com", Age: 30, Status: 1, Score: 78.25, Active: true, Manager: &ann}
	alan := Person{ID: ids.Next(), Name: "Alan", Email: "alan@example.net", Age: 30, Status: 3, Score: 60, Active: true, Nickname: Ptr(""), Manager: &ann}
	carl := Person{ID: ids.Next(), Name: "Carl", Email: "carl_x@example.com", Age: 65, Status: 4, Score: 99.9, Active: false, Manager: &bob}
	dana := Person{ID: ids.Next(), Name: "Dana", Email: "dana@example.com", Age: 18, Status: 5, Score: 42, Active: true, Nickname: Ptr("dee")}
	eve := Person{ID: ids.Next(), Name: "Eve", Email: "eve@evil.io", Age: 66, Status: 2, Score: 0, Active: false}
	finn := Person{ID: ids.Next(), Name: "Finn", Email: "finn@example.com", Age: 30, Status: 1, Score: 78.25, Active: true, Manager: &dana}
	gus := Person{ID: ids.Next(), Name: "gus", Email: "gus@example.com", Age: 52, Status: 3, Score: 12.5, Active: true, Nickname: Ptr("G")}
	hal := Person{ID: ids.Next(), Name: "Hal", Email: "hal@example.co.uk", Age: 41, Status: 2, Score: 91.5, Active: false, Manager: &gus}
	ivy := Person{ID: ids.Next(), Name: "Ivy", Email: "ivy@example.com", Age: 23, Status: 1, Score: 66.6, Active: true}
	jo := Person{ID: ids.Next(), Name: "Jo", Email: "jo%jo@example.com", Age: 17, Status: 4, Score: 55, Active: true, Nickname: Ptr("jojo")}
	return []Person{ann, bob, al, alan, carl, dana, eve, finn, gus, hal, ivy, jo}
}

var (
	firstNames = []string{"Ann", "Bob", "Al", "Alan", "Cy", "Dee", "Eve", "Flo", "gus"}
	domains    = []string{"example.com", "example.org", "Example.COM", "x.io"}
	nicknames  = []string{"", "ace", "Bea", "zed"}
)

// Generate returns n random people drawn from r. Ids restart at 1.
func Generate(r *rand.Rand, n int) []Person {
	ids := NewIDSource()
	out := make([]Person, n)
	for i := range out {
		name := firstNames[r.Intn(len(firstNames))]
		p := Person{
			ID:     ids.Next(),
			Name:   name,
			Email:  fmt.Sprintf("%s%d@%s", name, r.Intn(100), domains[r.Intn(len(domains))]),
			Age:    r.Intn(80),
			Status: 1 + r.Intn(5),
			Score:  float64(r.Intn(400)) / 4,
			Active: r.Intn(2) == 0,
		}
		if r.Intn(3) == 0 {
			p.Nickname = Ptr(nicknames[r.Intn(len(nicknames))])
		}
		out[i] = p
	}
	return out
}

// Execer is satisfied by *sql.DB, *sqlx.DB and the store.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Seed creates the people table on db and inserts people.
func Seed(ctx context.Context, db Execer, people []Person) error {
	if _, err := db.ExecContext(ctx, PeopleSchema); err != nil {
		return fmt.Errorf("create people: %w", err)
	}
	for _, p := range people {
		_, err := db.ExecContext(ctx,
			`INSERT INTO people (ID, Name, Email, Age, Status, Score, Active, Nickname) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Email, p.Age, p.Status, p.Score, p.Active, p.Nickname)
		if err != nil {
			return fmt.Errorf("insert person %d: %w", p.ID, err)
		}
	}
	return nil
}

// IDs returns the ids of people in order.
func IDs(people []Person) []int64 {
	out := make([]int64, len(people))
	for i, p := range people {
		out[i] = p.ID
	}
	return out
}
