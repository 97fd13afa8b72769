// Package render draws analyzed search results for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ytinsight"
	"ytinsight/insight"
	"ytinsight/storage"
)

// Palette used outside the tier badge.
var (
	colorMuted   = lipgloss.Color("#9ca3af")
	colorBorder  = lipgloss.Color("#4b5563")
	colorSuccess = lipgloss.Color("#10b981")
	colorWarning = lipgloss.Color("#f59e0b")
	colorInfo    = lipgloss.Color("#3b82f6")
	colorBadgeFg = lipgloss.Color("#ffffff")
)

// DefaultWidth is the card width used when Options.Width is unset.
const DefaultWidth = 72

// Options controls rendering.
type Options struct {
	// Width is the outer card width in columns.
	Width int
	// ShowInsights adds the insights panel to each card.
	ShowInsights bool
	// Now is the reference time for ages; zero means time.Now.
	Now time.Time
	// Rank prefixes the card title with "#n" when positive.
	Rank int
}

func (o Options) width() int {
	if o.Width <= 0 {
		return DefaultWidth
	}
	return o.Width
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Card renders one result as a bordered card.
func Card(e ytinsight.Entry, opts Options) string {
	v := e.Video
	res := e.Insight
	inner := opts.width() - 4

	titleStyle := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Foreground(colorMuted)

	title := v.Title
	if opts.Rank > 0 {
		title = fmt.Sprintf("#%d %s", opts.Rank, title)
	}
	lines := []string{titleStyle.Render(truncate(title, inner))}

	channel := v.ChannelTitle
	if e.Channel != nil {
		channel += fmt.Sprintf(" · 구독자 %s명", insight.FormatNumber(e.Channel.SubscriberCount))
	}
	lines = append(lines, muted.Render(truncate(channel, inner)))

	lines = append(lines, fmt.Sprintf("조회 %s · 좋아요 %s · 댓글 %s",
		insight.FormatNumber(v.ViewCount),
		insight.FormatNumber(v.LikeCount),
		insight.FormatNumber(v.CommentCount)))

	var meta []string
	if age := insight.FormatAgeAt(v.PublishedAt, opts.now()); age != "" {
		meta = append(meta, age)
	}
	if v.Duration != "" {
		meta = append(meta, insight.FormatDuration(v.Duration))
	}
	if len(meta) > 0 {
		lines = append(lines, muted.Render(strings.Join(meta, " · ")))
	}

	lines = append(lines, fmt.Sprintf("%s 품질 점수 %.1f/100 · 참여율 %.2f%%",
		Badge(res.Performance), res.QualityScore, res.EngagementRate))

	if v.ID != "" {
		lines = append(lines, muted.Render(v.URL()))
	}

	if opts.ShowInsights {
		lines = append(lines, "", insightsPanel(e, inner))
	}

	card := lipgloss.NewStyle().
		Width(opts.width()-2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
	return card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Badge renders the tier label on the tier colour.
func Badge(t insight.Tier) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(t.Color)).
		Foreground(colorBadgeFg).
		Bold(true).
		Padding(0, 1).
		Render(t.Label)
}

func insightsPanel(e ytinsight.Entry, width int) string {
	var lines []string
	for _, in := range e.Insight.Insights {
		lines = append(lines, insightLine(in))
	}
	if len(lines) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorMuted).Render("특별한 인사이트 없음"))
	}
	if ch := e.Channel; ch != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorMuted).Render(
			fmt.Sprintf("채널 총 조회수 %s · 채널 영상 수 %s",
				insight.FormatNumber(ch.ViewCount), insight.FormatNumber(ch.VideoCount))))
	}

	return lipgloss.NewStyle().
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(colorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func insightLine(in insight.Insight) string {
	icon, color := "ℹ", colorInfo
	switch in.Category {
	case insight.CategorySuccess:
		icon, color = "✓", colorSuccess
	case insight.CategoryWarning:
		icon, color = "!", colorWarning
	}
	return lipgloss.NewStyle().Foreground(color).Render(icon) + " " + in.Message
}

// List renders a result header followed by one card per entry.
func List(entries []ytinsight.Entry, criterion insight.Criterion, opts Options) string {
	if len(entries) == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("검색 결과가 없습니다")
	}

	header := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("검색 결과 %d개 · %s", len(entries), criterion.Label()))

	blocks := []string{header}
	for i, e := range entries {
		o := opts
		o.Rank = i + 1
		blocks = append(blocks, Card(e, o))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// Table renders entries as a compact table.
func Table(entries []ytinsight.Entry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncate(e.Video.Title, 40),
			truncate(e.Video.ChannelTitle, 20),
			insight.FormatNumber(e.Video.ViewCount),
			insight.FormatNumber(e.Video.LikeCount),
			insight.FormatNumber(e.Video.CommentCount),
			fmt.Sprintf("%.2f%%", e.Insight.EngagementRate),
			fmt.Sprintf("%.1f", e.Insight.QualityScore),
			e.Insight.Performance.Label,
		})
	}
	return simpleTable(rows, "#", "제목", "채널", "조회", "좋아요", "댓글", "참여율", "점수", "등급")
}

// History renders saved searches, newest first as given.
func History(records []*storage.SearchRecord) string {
	if len(records) == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("검색 기록이 없습니다")
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		criterion := insight.Criterion(r.Criterion)
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Keyword, 24),
			criterion.Label(),
			strconv.Itoa(r.ResultCount),
			truncate(r.TopVideoTitle, 30),
			fmt.Sprintf("%.1f", r.TopScore),
		})
	}
	return simpleTable(rows, "ID", "일시", "키워드", "정렬", "결과", "최고 영상", "점수")
}

func simpleTable(rows [][]string, headers ...string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// truncate shortens s to at most n display columns, marking the cut.
func truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
