package room

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const (
	currentRoomID = "11111111-1111-4111-8111-111111111111"
	targetRoomID  = "22222222-2222-4222-8222-222222222222"
)

type fakeLookup struct {
	rooms map[string]*Room
}

func (f *fakeLookup) Get(ctx context.Context, id string) (*Room, error) {
	rm, ok := f.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rm, nil
}

func TestSwitcher(t *testing.T) {
	lookup := &fakeLookup{rooms: map[string]*Room{
		targetRoomID: {ID: targetRoomID, PK: 14, Number: "0.14"},
	}}

	t.Run("confirmed switch returns target", func(t *testing.T) {
		var prompted *Room
		s := NewSwitcher(lookup, ConfirmerFunc(func(ctx context.Context, target *Room) (bool, error) {
			prompted = target
			return true, nil
		}))

		got, err := s.Switch(context.Background(), currentRoomID, targetRoomID)
		if err != nil {
			t.Fatalf("Switch() error = %v", err)
		}
		if got.PK != 14 {
			t.Errorf("target PK = %d, want 14", got.PK)
		}
		if prompted == nil || prompted.Number != "0.14" {
			t.Errorf("prompt received %+v, want room 0.14", prompted)
		}
	})

	t.Run("declined switch returns ErrSwitchDeclined", func(t *testing.T) {
		s := NewSwitcher(lookup, ConfirmerFunc(func(ctx context.Context, target *Room) (bool, error) {
			return false, nil
		}))

		_, err := s.Switch(context.Background(), currentRoomID, targetRoomID)
		if !errors.Is(err, ErrSwitchDeclined) {
			t.Errorf("Switch() error = %v, want ErrSwitchDeclined", err)
		}
	})

	t.Run("same room is a silent no-op", func(t *testing.T) {
		s := NewSwitcher(lookup, ConfirmerFunc(func(ctx context.Context, target *Room) (bool, error) {
			t.Fatal("confirmer should not be called for the current room")
			return false, nil
		}))

		got, err := s.Switch(context.Background(), currentRoomID, currentRoomID)
		if err != nil {
			t.Fatalf("Switch() error = %v", err)
		}
		if got != nil {
			t.Errorf("Switch() = %+v, want nil", got)
		}
	})

	t.Run("unknown target skips the prompt", func(t *testing.T) {
		called := false
		s := NewSwitcher(lookup, ConfirmerFunc(func(ctx context.Context, target *Room) (bool, error) {
			called = true
			return true, nil
		}))

		_, err := s.Switch(context.Background(), currentRoomID, "33333333-3333-4333-8333-333333333333")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Switch() error = %v, want ErrNotFound", err)
		}
		if called {
			t.Error("confirmer should not be called when lookup fails")
		}
	})
}

func TestClientGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/rooms/"+targetRoomID+"/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Room{ID: targetRoomID, PK: 14, Number: "0.14"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Run("resolves known room", func(t *testing.T) {
		c := NewClient(srv.URL+"/api/v2", "secret", time.Second)
		rm, err := c.Get(context.Background(), targetRoomID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rm.Number != "0.14" || rm.PK != 14 {
			t.Errorf("Get() = %+v, want number 0.14 pk 14", rm)
		}
	})

	t.Run("unknown room maps to ErrNotFound", func(t *testing.T) {
		c := NewClient(srv.URL+"/api/v2", "secret", time.Second)
		if _, err := c.Get(context.Background(), currentRoomID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("bad token maps to ErrUnauthorized", func(t *testing.T) {
		c := NewClient(srv.URL+"/api/v2", "wrong", time.Second)
		if _, err := c.Get(context.Background(), targetRoomID); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Get() error = %v, want ErrUnauthorized", err)
		}
	})
}

func TestClientSaveInventory(t *testing.T) {
	var received map[string]map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/rooms/14/inventorize/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Run("submits the payload", func(t *testing.T) {
		c := NewClient(srv.URL+"/api/v2", "secret", time.Second)
		payload := []byte(`{"dev-1":"Found","dev-2":"NotFound"}`)
		if err := c.SaveInventory(context.Background(), 14, payload); err != nil {
			t.Fatalf("SaveInventory() error = %v", err)
		}
		if received["uuids_states"]["dev-1"] != "Found" {
			t.Errorf("backend received %v, want dev-1 Found", received)
		}
	})

	t.Run("bad token maps to ErrUnauthorized", func(t *testing.T) {
		c := NewClient(srv.URL+"/api/v2", "wrong", time.Second)
		err := c.SaveInventory(context.Background(), 14, []byte(`{}`))
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("SaveInventory() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("server error maps to ErrSaveFailed", func(t *testing.T) {
		c := NewClient(srv.URL+"/api/v2", "secret", time.Second)
		err := c.SaveInventory(context.Background(), 99, []byte(`{}`))
		if !errors.Is(err, ErrSaveFailed) {
			t.Errorf("SaveInventory() error = %v, want ErrSaveFailed", err)
		}
	})
}
