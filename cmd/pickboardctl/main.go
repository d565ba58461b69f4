// Command pickboardctl is a terminal client for the pickboard service: it
// prints rankings and picker stats, and seeds CSV exports into a running
// instance.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/avesk/pickboard/internal/domain/types"
)

const requestTimeout = 30 * time.Second

var (
	serverAddr string
	filterFlag string
	cohortFlag string
)

var rootCmd = &cobra.Command{
	Use:   "pickboardctl",
	Short: "Client for the pickboard leaderboard service",
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Print the full rankings table",
	RunE: func(_ *cobra.Command, _ []string) error {
		q := url.Values{}
		q.Set("filter", filterFlag)
		if cohortFlag != "" {
			q.Set("cohort", cohortFlag)
		}
		var view types.RankingsView
		if err := getJSON("/api/rankings?"+q.Encode(), &view); err != nil {
			return err
		}
		return printRankings(view)
	},
}

var pickerCmd = &cobra.Command{
	Use:   "picker <picker_id>",
	Short: "Print one picker's dashboard stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("filter", filterFlag)
		var stats types.PickerStats
		path := "/api/picker/" + url.PathEscape(args[0]) + "/stats?" + q.Encode()
		if err := getJSON(path, &stats); err != nil {
			return err
		}
		return printPickerStats(args[0], stats)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.csv>",
	Short: "Upload a CSV export to the service",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return seedFile(args[0])
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8090", "pickboard server base URL")
	rankingsCmd.Flags().StringVar(&filterFlag, "filter", "today", "time filter: today, yesterday, this_week")
	rankingsCmd.Flags().StringVar(&cohortFlag, "cohort", "", "cohort number, empty for all")
	pickerCmd.Flags().StringVar(&filterFlag, "filter", "today", "time filter: today, yesterday, this_week")
	rootCmd.AddCommand(rankingsCmd, pickerCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getJSON(path string, v any) error {
	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Get(serverAddr + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func printRankings(view types.RankingsView) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Rank", "Picker", "Name", "Picklists", "Picked", "Lost", "Score", "Status"})

	data := make([][]string, 0, len(view.Rankings))
	for _, row := range view.Rankings {
		data = append(data, []string{
			strconv.Itoa(row.Rank),
			row.PickerID,
			row.Name,
			strconv.Itoa(row.UniquePicklists),
			strconv.Itoa(row.ItemsPicked),
			strconv.Itoa(row.ItemsLost),
			strconv.Itoa(row.Score),
			colorize(row.StatusColor),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Printf("pickers: %d  daily avg: %.1f\n", view.TotalPickers, view.DailyAvg)
	return nil
}

func printPickerStats(pickerID string, stats types.PickerStats) error {
	rankStr := "unranked"
	if stats.Rank > 0 {
		rankStr = fmt.Sprintf("%d of %d", stats.Rank, stats.TotalPickers)
	}
	fmt.Printf("picker: %s\n", pickerID)
	fmt.Printf("rank: %s\n", rankStr)
	fmt.Printf("score: %d  picked: %d  lost: %d  picklists: %d\n",
		stats.Score, stats.ItemsPicked, stats.ItemsLost, stats.UniquePicklists)
	fmt.Printf("daily avg: %.1f  status: %s\n", stats.DailyAvg, colorize(stats.StatusColor))
	if stats.Rank > 1 {
		fmt.Printf("items to next rank: %d\n", stats.ItemsToNextRank)
	}
	fmt.Printf("behind first by: %d\n", stats.DifferenceFromFirst)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Rank", "Picker", "Score", "Status"})
	data := make([][]string, 0, len(stats.Leaderboard))
	for _, row := range stats.Leaderboard {
		id := row.PickerID
		if row.IsCurrentUser {
			id = color.New(color.Bold).Sprint(id + " *")
		}
		data = append(data, []string{
			strconv.Itoa(row.Rank), id, strconv.Itoa(row.Score), colorize(row.StatusColor),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func colorize(status string) string {
	switch status {
	case "green":
		return color.New(color.FgGreen).Sprint(status)
	case "yellow":
		return color.New(color.FgYellow).Sprint(status)
	case "red":
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

func seedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("csv_file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Post(serverAddr+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(payload))
	}
	fmt.Println(string(bytes.TrimSpace(payload)))
	return nil
}
