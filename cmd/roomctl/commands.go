package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/server"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func cmdHealth(ctx context.Context, api *apiClient, w io.Writer) error {
	health, err := api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", color.Green.Sprint("●"), health.Status)
	table := newTable(w, "Connected users", "Active rooms", "Total messages", "Timestamp")
	table.Append([]string{
		strconv.Itoa(health.Sessions),
		strconv.Itoa(health.Rooms),
		strconv.Itoa(health.Messages),
		health.Timestamp.Local().Format(timeLayout),
	})
	table.Render()
	return nil
}

func cmdRooms(ctx context.Context, api *apiClient, w io.Writer) error {
	resp, err := api.Rooms(ctx)
	if err != nil {
		return err
	}
	summaries := lo.Values(resp.Rooms)
	slices.SortFunc(summaries, func(a, b chat.RoomSummary) int {
		return strings.Compare(a.Name, b.Name)
	})

	table := newTable(w, "Room", "Users", "Created")
	for _, room := range summaries {
		table.Append([]string{room.Name, strconv.Itoa(room.MemberCount), room.CreatedAt.Local().Format(timeLayout)})
	}
	table.Render()
	fmt.Fprintf(w, "%d room(s)\n", resp.Count)
	return nil
}

func cmdUsers(ctx context.Context, api *apiClient, w io.Writer) error {
	resp, err := api.Users(ctx)
	if err != nil {
		return err
	}
	table := newTable(w, "Session", "Username", "Room", "Connected")
	for _, user := range resp.Users {
		table.Append([]string{
			user.ID,
			lo.Ternary(user.DisplayName == "", "-", user.DisplayName),
			lo.Ternary(user.CurrentRoom == "", "-", user.CurrentRoom),
			user.ConnectedAt.Local().Format(timeLayout),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d user(s)\n", resp.Count)
	return nil
}

func cmdMessages(ctx context.Context, api *apiClient, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("messages", flag.ContinueOnError)
	room := fs.String("room", "", "only messages of this room")
	limit := fs.Int("limit", server.DefaultMessageLimit, "number of messages")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	resp, err := api.Messages(ctx, *room, *limit)
	if err != nil {
		return err
	}
	table := newTable(w, "ID", "Time", "Room", "User", "Message")
	for _, msg := range resp.Messages {
		table.Append([]string{
			strconv.FormatInt(msg.ID, 10),
			msg.CreatedAt.Local().Format(timeLayout),
			msg.Room,
			msg.Author,
			msg.Text,
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d message(s)\n", resp.Total)
	return nil
}

func cmdPost(ctx context.Context, api *apiClient, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	text := fs.String("m", "", "message text")
	user := fs.String("u", "", "author name")
	room := fs.String("room", "", "target room")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if strings.TrimSpace(*text) == "" {
		fmt.Fprintln(fs.Output(), "post: -m is required")
		return errUsage
	}

	msg, err := api.Post(ctx, server.CreateMessageRequest{Message: *text, Username: *user, Room: *room})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s message %d posted to %s\n", color.Green.Sprint("✔"), msg.ID, msg.Room)
	return nil
}

func formatMessage(msg chat.Message) string {
	return fmt.Sprintf("%s %s %s",
		color.Gray.Sprint(msg.CreatedAt.Local().Format(time.TimeOnly)),
		color.Cyan.Sprintf("%s:", msg.Author),
		msg.Text)
}
