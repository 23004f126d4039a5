package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "lesari-test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteSetGet(t *testing.T) {
	db := newTestSQLite(t)
	if err := db.Set("annotations", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := db.Get("annotations")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Get = %q", got)
	}
}

func TestSQLiteUpsert(t *testing.T) {
	db := newTestSQLite(t)
	if err := db.Set("k", []byte("fyrst")); err != nil {
		t.Fatal(err)
	}
	if err := db.Set("k", []byte("svo")); err != nil {
		t.Fatal(err)
	}
	got, err := db.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "svo" {
		t.Errorf("Get after upsert = %q", got)
	}
	keys, err := db.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("keys = %v", keys)
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	db := newTestSQLite(t)
	if _, err := db.Get("finnst-ekki"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestSQLiteDelete(t *testing.T) {
	db := newTestSQLite(t)
	if err := db.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := db.Delete("k"); err != nil {
		t.Errorf("delete of absent key: %v", err)
	}
}

func TestSQLiteKeysSorted(t *testing.T) {
	db := newTestSQLite(t)
	for _, k := range []string{"gamma", "alfa", "beta"} {
		if err := db.Set(k, []byte("v")); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := db.Keys()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alfa", "beta", "gamma"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys = %v, want %v", keys, want)
			break
		}
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesari-test.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.Set("k", []byte("varanlegt")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	got, err := db2.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "varanlegt" {
		t.Errorf("Get after reopen = %q", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("db file: %v", err)
	}
}
