package controllers

import (
	"testing"

	"github.com/bazaarche/bazaarche/models"
)

func TestAssembleConversations(t *testing.T) {
	threads := []messageThread{
		{ListingID: 7, BuyerID: 3, LastID: 42},
		{ListingID: 5, BuyerID: 3, LastID: 30},
		{ListingID: 7, BuyerID: 9, LastID: 12},
	}
	last := map[uint]*models.Message{
		42: {ID: 42, ListingID: 7, BuyerID: 3, Body: "newest"},
		30: {ID: 30, ListingID: 5, BuyerID: 3, Body: "middle"},
		12: {ID: 12, ListingID: 7, BuyerID: 9, Body: "oldest"},
	}
	unread := map[[2]uint]int64{
		{7, 3}: 2,
		{7, 9}: 1,
	}

	items := assembleConversations(threads, last, unread)
	if len(items) != 3 {
		t.Fatalf("got %d conversations, want 3", len(items))
	}

	// Query order (newest thread first) is preserved.
	wantBodies := []string{"newest", "middle", "oldest"}
	for i, want := range wantBodies {
		if items[i].LastMessage == nil || items[i].LastMessage.Body != want {
			t.Errorf("items[%d].LastMessage = %+v, want body %q", i, items[i].LastMessage, want)
		}
	}

	if items[0].Unread != 2 || items[2].Unread != 1 {
		t.Errorf("unread counts = [%d %d %d], want [2 0 1]",
			items[0].Unread, items[1].Unread, items[2].Unread)
	}
	if items[1].Unread != 0 {
		t.Errorf("thread without unread rows should count 0, got %d", items[1].Unread)
	}
}

// A thread whose latest message row vanished between queries still renders.
func TestAssembleConversationsMissingLastMessage(t *testing.T) {
	threads := []messageThread{{ListingID: 1, BuyerID: 2, LastID: 99}}
	items := assembleConversations(threads, map[uint]*models.Message{}, nil)
	if len(items) != 1 {
		t.Fatalf("got %d conversations, want 1", len(items))
	}
	if items[0].LastMessage != nil {
		t.Errorf("LastMessage = %+v, want nil", items[0].LastMessage)
	}
}
