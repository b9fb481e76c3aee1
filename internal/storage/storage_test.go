package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service/memory"
)

const day = "2025-06-10"

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmpty(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "dev.db"))
	_, ok, err := s.Load(context.Background())
	if err != nil || ok {
		t.Errorf("Load() = ok %v, err %v, want nothing stored", ok, err)
	}
}

func TestSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dev.db")
	secret := []byte("test-secret")

	src := memory.Seed(secret)
	if _, err := src.GenerateSchedule(ctx, day, false); err != nil {
		t.Fatal(err)
	}
	if _, err := src.LockSchedule(ctx, day); err != nil {
		t.Fatal(err)
	}
	note := "dentist"
	if _, err := src.SetDriverDayStatus(ctx, 17, models.DriverDayRequest{
		Date: "2025-06-11", Status: models.DriverHoliday, Notes: &note,
	}); err != nil {
		t.Fatal(err)
	}
	want := src.State()

	s := openStore(t, path)
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Close()

	reopened := openStore(t, path)
	got, ok, err := reopened.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	dst := memory.Seed(secret)
	dst.Restore(got)
	before, _ := src.GetSnapshot(ctx, day)
	after, err := dst.GetSnapshot(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(after, before) {
		t.Errorf("restored snapshot = %+v, want %+v", after, before)
	}
	if !after.IsLocked {
		t.Error("restored schedule lost its lock")
	}
}

func TestSaveReplacesPreviousState(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "dev.db"))

	first := memory.Seed([]byte("test-secret"))
	if _, err := first.GenerateSchedule(ctx, day, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, first.State()); err != nil {
		t.Fatal(err)
	}
	empty := memory.Seed([]byte("test-secret")).State()
	if err := s.Save(ctx, empty); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if len(got.Schedules) != 0 {
		t.Errorf("Load() schedules = %d, want 0", len(got.Schedules))
	}
}
