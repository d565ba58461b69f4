package directory_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/avesk/pickboard/internal/directory"
)

var joinDate = time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)

func TestDirectory(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an empty directory", t, func() {
		d := directory.NewInMemoryDirectory()

		convey.Convey("When a picker is registered", func() {
			d.Register(ctx, "Alice", joinDate)

			convey.Convey("Then lookups match case-insensitively", func() {
				p, ok := d.Lookup(ctx, "alice")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.PickerID, convey.ShouldEqual, "Alice")
				convey.So(p.JoinedAt, convey.ShouldEqual, joinDate)
				convey.So(p.Cohort, convey.ShouldEqual, 0)
			})

			convey.Convey("Then re-registering keeps the original join date", func() {
				d.Register(ctx, "ALICE", joinDate.AddDate(0, 1, 0))
				p, _ := d.Lookup(ctx, "alice")
				convey.So(p.JoinedAt, convey.ShouldEqual, joinDate)
				convey.So(d.Count(ctx), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a cohort is assigned to an existing picker", func() {
			d.Register(ctx, "bob", joinDate)
			d.Assign(ctx, "BOB", 3, joinDate.AddDate(0, 2, 0))

			convey.Convey("Then the cohort updates and the join date survives", func() {
				p, ok := d.Lookup(ctx, "bob")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.Cohort, convey.ShouldEqual, 3)
				convey.So(p.JoinedAt, convey.ShouldEqual, joinDate)
			})
		})

		convey.Convey("When a cohort is assigned to an unknown picker", func() {
			d.Assign(ctx, "carol", 2, joinDate)

			convey.Convey("Then the profile is created", func() {
				p, ok := d.Lookup(ctx, "carol")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.Cohort, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("Then blank picker ids are ignored", func() {
			d.Register(ctx, "  ", joinDate)
			convey.So(d.Count(ctx), convey.ShouldEqual, 0)
		})
	})
}

func TestImportCohortCSV(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a column-per-cohort roster", t, func() {
		d := directory.NewInMemoryDirectory()
		roster := strings.Join([]string{
			"Cohort 1,Cohort 2,Cohort 3",
			"alice,dave,frank",
			"bob,erin,",
			"carol,,",
		}, "\n")

		summary, err := d.ImportCohortCSV(ctx, strings.NewReader(roster), joinDate)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then pickers land in their column's cohort", func() {
			for picker, cohort := range map[string]int{
				"alice": 1, "bob": 1, "carol": 1,
				"dave": 2, "erin": 2,
				"frank": 3,
			} {
				p, ok := d.Lookup(ctx, picker)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.Cohort, convey.ShouldEqual, cohort)
			}
		})

		convey.Convey("Then the summary counts pickers and cohorts", func() {
			convey.So(summary.Pickers, convey.ShouldEqual, 6)
			convey.So(summary.Cohorts, convey.ShouldEqual, 3)
			convey.So(summary.Created, convey.ShouldEqual, 6)
			convey.So(summary.Updated, convey.ShouldEqual, 0)
			convey.So(summary.PerQuota[1], convey.ShouldEqual, 3)
			convey.So(summary.PerQuota[2], convey.ShouldEqual, 2)
			convey.So(summary.PerQuota[3], convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a roster naming already-known pickers", t, func() {
		d := directory.NewInMemoryDirectory()
		d.Register(ctx, "alice", joinDate)

		summary, err := d.ImportCohortCSV(ctx, strings.NewReader("Cohort 1\nALICE\n"), joinDate.AddDate(0, 1, 0))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the existing profile is updated, not duplicated", func() {
			convey.So(summary.Updated, convey.ShouldEqual, 1)
			convey.So(summary.Created, convey.ShouldEqual, 0)
			convey.So(d.Count(ctx), convey.ShouldEqual, 1)

			p, _ := d.Lookup(ctx, "alice")
			convey.So(p.Cohort, convey.ShouldEqual, 1)
			convey.So(p.JoinedAt, convey.ShouldEqual, joinDate)
		})
	})

	convey.Convey("Given a header with non-cohort columns", t, func() {
		d := directory.NewInMemoryDirectory()
		roster := "Notes,Cohort 1\nignored,alice\n"

		summary, err := d.ImportCohortCSV(ctx, strings.NewReader(roster), joinDate)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then only cohort columns are read", func() {
			convey.So(summary.Cohorts, convey.ShouldEqual, 1)
			_, ok := d.Lookup(ctx, "ignored")
			convey.So(ok, convey.ShouldBeFalse)
			p, ok := d.Lookup(ctx, "alice")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(p.Cohort, convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given an empty reader", t, func() {
		d := directory.NewInMemoryDirectory()
		_, err := d.ImportCohortCSV(ctx, strings.NewReader(""), joinDate)

		convey.Convey("Then the missing header is an error", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
