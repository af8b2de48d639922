// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"fanhub/internal/backend"
	"fanhub/internal/database"
)

func TestDocumentStoreQueryOrdersAndLimits(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *sql.DB, driver database.Driver) {
		ctx := context.Background()
		s := NewDocumentStore(db, driver)

		path := "artifacts/store-test/public/data/news"
		t.Cleanup(func() { cleanDocuments(t, db, driver, path, path+"/other") })

		// Timestamps out of insertion order, with a tie on 300.
		for i, ts := range []int{100, 300, 200, 300, 50, 400, 250, 150, 350, 10, 20, 30} {
			data := fmt.Sprintf(`{"headline":"post %d","timestamp":%d}`, i, ts)
			if _, err := s.Insert(ctx, path, []byte(data)); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		if _, err := s.Insert(ctx, path+"/other", []byte(`{"timestamp":999}`)); err != nil {
			t.Fatalf("Insert other path: %v", err)
		}

		docs, err := s.Query(ctx, backend.Query{Path: path, OrderBy: "timestamp", Descending: true, Limit: 9})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(docs) != 9 {
			t.Fatalf("len: got %d, want 9", len(docs))
		}

		var got []string
		for _, d := range docs {
			var f struct {
				Headline string `json:"headline"`
			}
			if err := json.Unmarshal(d.Data, &f); err != nil {
				t.Fatalf("unmarshal %s: %v", d.Data, err)
			}
			if d.ID == "" {
				t.Error("document without id")
			}
			got = append(got, f.Headline)
		}

		// The later of the two 300s comes first.
		want := []string{"post 5", "post 8", "post 3", "post 1", "post 6", "post 2", "post 7", "post 0", "post 4"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("order:\n got %v\nwant %v", got, want)
		}
	})
}

func TestDocumentStoreMissingFieldSortsLast(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *sql.DB, driver database.Driver) {
		ctx := context.Background()
		s := NewDocumentStore(db, driver)

		path := "artifacts/store-test-missing/public/data/news"
		t.Cleanup(func() { cleanDocuments(t, db, driver, path) })

		first, _ := s.Insert(ctx, path, []byte(`{"headline":"no timestamp"}`))
		second, _ := s.Insert(ctx, path, []byte(`{"timestamp":5}`))

		docs, err := s.Query(ctx, backend.Query{Path: path, OrderBy: "timestamp", Descending: true, Limit: 9})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(docs) != 2 || docs[0].ID != second || docs[1].ID != first {
			t.Errorf("got %+v, want timestamped doc first", docs)
		}
	})
}

func TestDocumentStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(testDB(t, database.SQLite), database.SQLite)

	if _, err := s.Insert(ctx, "p", []byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}

	_, err := s.Query(ctx, backend.Query{Path: "p", OrderBy: "x'); DROP TABLE documents; --", Limit: 1})
	if !errors.Is(err, backend.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestDocumentStoreBacksService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := testDB(t, database.SQLite)
	users := NewUserStore(db, database.SQLite)
	if _, err := users.Create(ctx, "svc@store-test.local", "pw", "Svc"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc := backend.NewService(users, NewDocumentStore(db, database.SQLite), backend.NewLocalBus())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	c := svc.Connect(nil, nil)
	if _, err := c.SignInWithPassword(ctx, "svc@store-test.local", "pw"); err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if _, err := c.AddDocument(ctx, "news", backend.Fields{"headline": "h", "timestamp": backend.ServerTimestamp}); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	docs, err := svc.Query(ctx, backend.Query{Path: "news", OrderBy: "timestamp", Descending: true, Limit: 9})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len: got %d, want 1", len(docs))
	}
	var f map[string]any
	if err := json.Unmarshal(docs[0].Data, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ts, _ := f["timestamp"].(float64); ts <= 0 {
		t.Errorf("server timestamp not resolved: %v", f["timestamp"])
	}
}
