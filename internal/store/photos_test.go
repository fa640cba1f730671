package store

import (
	"context"
	"testing"

	"github.com/erazemk/sledljivost/internal/db"
	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
)

func TestItemPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	l, err := ledger.Init(ctx, database, "admin")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := l.HarvestItem(ctx, "admin", model.Harvest{UPC: 9, FarmerID: "admin"}); err != nil {
		t.Fatalf("HarvestItem: %v", err)
	}

	photo, err := GetItemPhoto(ctx, database, 9)
	if err != nil {
		t.Fatalf("GetItemPhoto: %v", err)
	}
	if photo != nil {
		t.Fatal("expected no photo before upload")
	}

	if err := SetItemPhoto(ctx, database, 9, []byte("first"), "image/png", "admin"); err != nil {
		t.Fatalf("SetItemPhoto: %v", err)
	}
	if err := SetItemPhoto(ctx, database, 9, []byte("second"), "image/webp", "admin"); err != nil {
		t.Fatalf("replacing photo: %v", err)
	}

	photo, err = GetItemPhoto(ctx, database, 9)
	if err != nil {
		t.Fatalf("GetItemPhoto: %v", err)
	}
	if string(photo.Data) != "second" || photo.MIME != "image/webp" {
		t.Errorf("expected replaced photo, got %q (%s)", photo.Data, photo.MIME)
	}

	if err := SetItemPhoto(ctx, database, 10, []byte("x"), "image/png", "admin"); err == nil {
		t.Error("expected photo for unknown item to fail")
	}
}
