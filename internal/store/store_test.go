package store_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/store"
)

// backends lists every driver the contract tests run against.
var backends = []string{store.DriverJSON, store.DriverSQLite}

// openTestStore opens a fresh store for driver in a temp directory and
// registers t.Cleanup to close it.
func openTestStore(t testing.TB, driver string) store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(driver, store.DefaultPath(dir, driver))
	if err != nil {
		t.Fatalf("openTestStore(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func doc(id, name string) store.Document {
	return store.Document{"_id": id, "name": name}
}

// forEachBackend runs fn once per backend as a named subtest.
func forEachBackend(c *qt.C, fn func(c *qt.C, s store.Store)) {
	for _, driver := range backends {
		c.Run(driver, func(c *qt.C) {
			fn(c, openTestStore(c, driver))
		})
	}
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("unknown driver", func(c *qt.C) {
		_, err := store.Open("bolt", filepath.Join(t.TempDir(), "x"))
		c.Assert(err, qt.ErrorIs, store.ErrUnknownDriver)
	})

	c.Run("corrupt json file is unavailable", func(c *qt.C) {
		path := filepath.Join(t.TempDir(), "flowlet.json")
		c.Assert(os.WriteFile(path, []byte("{not json"), 0o600), qt.IsNil)
		_, err := store.Open(store.DriverJSON, path)
		c.Assert(err, qt.ErrorIs, store.ErrStoreUnavailable)
	})

	c.Run("sqlite path that is a directory is unavailable", func(c *qt.C) {
		dir := t.TempDir()
		_, err := store.Open(store.DriverSQLite, dir)
		c.Assert(err, qt.ErrorIs, store.ErrStoreUnavailable)
	})
}

func TestDefaultPath(t *testing.T) {
	c := qt.New(t)
	c.Assert(store.DefaultPath("/h", store.DriverJSON), qt.Equals, filepath.Join("/h", "flowlet.json"))
	c.Assert(store.DefaultPath("/h", ""), qt.Equals, filepath.Join("/h", "flowlet.json"))
	c.Assert(store.DefaultPath("/h", store.DriverSQLite), qt.Equals, filepath.Join("/h", "flowlet.db"))
}

// ---------------------------------------------------------------------------
// InsertOne / FindOne
// ---------------------------------------------------------------------------

func TestInsertOne_HappyPath(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		got, err := s.InsertOne("command", store.Document{
			"_id": "a", "name": "deploy", "cmd": "./deploy.sh", "tags": []string{"x"},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(got["name"], qt.Equals, "deploy")
		c.Assert(got["tags"], qt.DeepEquals, []any{"x"})

		found, ok, err := s.FindOne("command", query.Eq("name", "deploy"))
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsTrue)
		c.Assert(found, qt.DeepEquals, got)
	})
}

func TestInsertOne_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("missing _id", func(c *qt.C) {
		forEachBackend(c, func(c *qt.C, s store.Store) {
			_, err := s.InsertOne("command", store.Document{"name": "x"})
			c.Assert(err, qt.ErrorIs, store.ErrMissingID)
		})
	})

	c.Run("duplicate _id in one collection", func(c *qt.C) {
		forEachBackend(c, func(c *qt.C, s store.Store) {
			_, err := s.InsertOne("command", doc("a", "one"))
			c.Assert(err, qt.IsNil)
			_, err = s.InsertOne("command", doc("a", "two"))
			c.Assert(err, qt.ErrorIs, store.ErrDuplicateID)

			all, err := s.FindMany("command", query.All())
			c.Assert(err, qt.IsNil)
			c.Assert(all, qt.HasLen, 1)
		})
	})

	c.Run("same _id in another collection is allowed", func(c *qt.C) {
		forEachBackend(c, func(c *qt.C, s store.Store) {
			_, err := s.InsertOne("command", doc("a", "one"))
			c.Assert(err, qt.IsNil)
			_, err = s.InsertOne("task", doc("a", "one"))
			c.Assert(err, qt.IsNil)
		})
	})
}

func TestFindOne_FirstMatchInInsertionOrder(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		_, err := s.InsertOne("command", doc("z", "dup"))
		c.Assert(err, qt.IsNil)
		_, err = s.InsertOne("command", doc("a", "dup"))
		c.Assert(err, qt.IsNil)

		got, ok, err := s.FindOne("command", query.Eq("name", "dup"))
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsTrue)
		c.Assert(got["_id"], qt.Equals, "z")
	})
}

func TestFindOne_NoMatchIsNotAnError(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		got, ok, err := s.FindOne("command", query.Eq("name", "missing"))
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsFalse)
		c.Assert(got, qt.IsNil)
	})
}

// ---------------------------------------------------------------------------
// FindMany
// ---------------------------------------------------------------------------

func TestFindMany_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("empty collection yields empty non-nil slice", func(c *qt.C) {
		forEachBackend(c, func(c *qt.C, s store.Store) {
			got, err := s.FindMany("task", query.All())
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.IsNotNil)
			c.Assert(got, qt.HasLen, 0)
		})
	})

	c.Run("filters and preserves insertion order", func(c *qt.C) {
		forEachBackend(c, func(c *qt.C, s store.Store) {
			for _, d := range []store.Document{
				{"_id": "3", "name": "c", "project": "p"},
				{"_id": "1", "name": "a", "project": "q"},
				{"_id": "2", "name": "b", "project": "p"},
			} {
				_, err := s.InsertOne("task", d)
				c.Assert(err, qt.IsNil)
			}

			got, err := s.FindMany("task", query.Eq("project", "p"))
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.HasLen, 2)
			c.Assert(got[0]["_id"], qt.Equals, "3")
			c.Assert(got[1]["_id"], qt.Equals, "2")
		})
	})
}

// ---------------------------------------------------------------------------
// UpdateOne
// ---------------------------------------------------------------------------

func TestUpdateOne_HappyPath(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		_, err := s.InsertOne("command", store.Document{"_id": "a", "name": "deploy", "cmd": "old"})
		c.Assert(err, qt.IsNil)

		got, ok, err := s.UpdateOne("command", query.Eq("name", "deploy"),
			store.Document{"cmd": "new", "_id": "hijack"})
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsTrue)
		c.Assert(got, qt.DeepEquals, store.Document{"_id": "a", "name": "deploy", "cmd": "new"})

		reread, _, err := s.FindOne("command", query.Eq("_id", "a"))
		c.Assert(err, qt.IsNil)
		c.Assert(reread["cmd"], qt.Equals, "new")
	})
}

func TestUpdateOne_NoMatch(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		got, ok, err := s.UpdateOne("command", query.Eq("name", "x"), store.Document{"cmd": "y"})
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsFalse)
		c.Assert(got, qt.IsNil)
	})
}

// ---------------------------------------------------------------------------
// DeleteOne / DeleteMany
// ---------------------------------------------------------------------------

func TestDeleteOne_HappyPath(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		_, _ = s.InsertOne("variable", doc("1", "HOST"))
		_, _ = s.InsertOne("variable", doc("2", "HOST"))

		ok, err := s.DeleteOne("variable", query.Eq("name", "HOST"))
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsTrue)

		rest, err := s.FindMany("variable", query.All())
		c.Assert(err, qt.IsNil)
		c.Assert(rest, qt.HasLen, 1)
		c.Assert(rest[0]["_id"], qt.Equals, "2")

		ok, err = s.DeleteOne("variable", query.Eq("name", "PORT"))
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsFalse)
	})
}

func TestDeleteMany_HappyPath(t *testing.T) {
	c := qt.New(t)

	forEachBackend(c, func(c *qt.C, s store.Store) {
		_, _ = s.InsertOne("auth", store.Document{"_id": "1", "flowlet_token": "a"})
		_, _ = s.InsertOne("auth", store.Document{"_id": "2", "flowlet_token": "b"})

		n, err := s.DeleteMany("auth", query.All())
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 2)

		n, err = s.DeleteMany("auth", query.All())
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 0)
	})
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestReopen_PersistsDocuments(t *testing.T) {
	c := qt.New(t)

	for _, driver := range backends {
		c.Run(driver, func(c *qt.C) {
			path := store.DefaultPath(t.TempDir(), driver)

			s, err := store.Open(driver, path)
			c.Assert(err, qt.IsNil)
			_, err = s.InsertOne("project", store.Document{"_id": "p1", "name": "flowlet"})
			c.Assert(err, qt.IsNil)
			c.Assert(s.Close(), qt.IsNil)

			s, err = store.Open(driver, path)
			c.Assert(err, qt.IsNil)
			defer s.Close()

			got, ok, err := s.FindOne("project", query.Eq("name", "flowlet"))
			c.Assert(err, qt.IsNil)
			c.Assert(ok, qt.IsTrue)
			c.Assert(got["_id"], qt.Equals, "p1")
		})
	}
}

func TestFileStore_WritesNamedCollections(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "nested", "flowlet.json")
	s, err := store.OpenFile(path)
	c.Assert(err, qt.IsNil)
	_, err = s.InsertOne("command", doc("a", "deploy"))
	c.Assert(err, qt.IsNil)

	b, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(b), qt.Contains, `"command": [`)

	entries, err := os.ReadDir(filepath.Dir(path))
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
}

func TestSQLiteStore_Meta(t *testing.T) {
	c := qt.New(t)

	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "flowlet.db"))
	c.Assert(err, qt.IsNil)
	defer s.Close()

	v, ok, err := s.GetMeta("schema_version")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(v, qt.Equals, "1")

	c.Assert(s.SetMeta("k", "v"), qt.IsNil)
	v, ok, err = s.GetMeta("k")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(v, qt.Equals, "v")

	_, ok, err = s.GetMeta("absent")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestSQLiteStore_NewerSchemaRejected(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "flowlet.db")
	s, err := store.OpenSQLite(path)
	c.Assert(err, qt.IsNil)
	c.Assert(s.SetMeta("schema_version", "99"), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)

	_, err = store.OpenSQLite(path)
	c.Assert(err, qt.ErrorIs, store.ErrSchemaVersion)
	c.Assert(err, qt.ErrorIs, store.ErrStoreUnavailable)
}
