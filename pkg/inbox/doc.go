// Package inbox stores in-app messages produced by the in_app delivery channel.
//
// Each message belongs to a single recipient and records the notification it
// came from, so the delivery pipeline stays idempotent: re-delivering the same
// task overwrites rather than duplicates.
//
// # Basic Usage
//
//	store := inbox.NewMemoryStorage()
//	box := inbox.New(store)
//
//	err := box.Put(ctx, inbox.Message{
//		RecipientID:    userID,
//		NotificationID: notifID,
//		Title:          "Schedule changed",
//		Body:           "Your workshop moved to room 204.",
//	})
//
//	unread, err := box.CountUnread(ctx, userID)
//	msgs, err := box.List(ctx, userID, inbox.ListOptions{OnlyUnread: true, Limit: 20})
//	err = box.MarkRead(ctx, userID, msgs[0].ID)
//
// The MemoryStorage implementation is suitable for development and tests;
// production deployments should back the Storage interface with a database.
package inbox
