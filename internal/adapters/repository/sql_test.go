package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/avesk/pickboard/internal/adapters/repository"
	"github.com/avesk/pickboard/internal/domain/model"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a fresh SQLite store", t, func() {
		path := filepath.Join(t.TempDir(), "pickboard.db")
		store, err := repository.NewSQLiteStore(ctx, path)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = store.Close() }()

		convey.Convey("When events are inserted", func() {
			n, err := store.InsertEvents(ctx, sampleEvents())
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 3)

			convey.Convey("Then counting and range scans work", func() {
				count, err := store.CountEvents(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 3)

				events, err := store.EventsBetween(ctx, base, base.Add(2*time.Hour))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(events), convey.ShouldEqual, 2)
			})

			convey.Convey("Then picker scans are case-insensitive and newest first", func() {
				events, err := store.EventsForPicker(ctx, "Alice", base, base.Add(3*time.Hour))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(events), convey.ShouldEqual, 2)
				convey.So(events[0].PicklistID, convey.ShouldEqual, "P3")
				convey.So(events[0].Status, convey.ShouldEqual, model.StatusCancelled)
			})

			convey.Convey("Then field values survive the round trip", func() {
				events, err := store.EventsForPicker(ctx, "bob", base, base.Add(3*time.Hour))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(events), convey.ShouldEqual, 1)
				convey.So(events[0].PickerID, convey.ShouldEqual, "bob")
				convey.So(events[0].PicklistID, convey.ShouldEqual, "P2")
				convey.So(events[0].BinID, convey.ShouldEqual, "B2")
			})
		})

		convey.Convey("When files are marked processed", func() {
			convey.So(store.MarkFileProcessed(ctx, "export_1.csv", base), convey.ShouldBeNil)
			convey.So(store.MarkFileProcessed(ctx, "export_1.csv", base.Add(time.Hour)), convey.ShouldBeNil)
			convey.So(store.MarkFileProcessed(ctx, "export_2.csv", base), convey.ShouldBeNil)

			convey.Convey("Then the list is deduplicated", func() {
				files, err := store.ProcessedFiles(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(files, convey.ShouldResemble, []string{"export_1.csv", "export_2.csv"})
			})
		})
	})

	convey.Convey("Given an existing database file", t, func() {
		path := filepath.Join(t.TempDir(), "pickboard.db")

		first, err := repository.NewSQLiteStore(ctx, path)
		convey.So(err, convey.ShouldBeNil)
		_, err = first.InsertEvents(ctx, sampleEvents()[:1])
		convey.So(err, convey.ShouldBeNil)
		convey.So(first.Close(), convey.ShouldBeNil)

		convey.Convey("Then reopening applies no migration and keeps the data", func() {
			second, err := repository.NewSQLiteStore(ctx, path)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = second.Close() }()

			count, err := second.CountEvents(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(count, convey.ShouldEqual, 1)
		})
	})
}
