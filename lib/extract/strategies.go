package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// <td>Còn trống:</td><td><span><div style="color: Red">0</div></span></td>
	remainingStyledPattern = regexp.MustCompile(`(?i)` + LabelRemaining + `\s*(?:</td>\s*)?<td[^>]*>\s*<span[^>]*>\s*<(?:div|font|b|strong)\b[^>]*>\s*([^<]*?)\s*</`)
	// <td>Còn trống:</td><td><span>5</span></td>
	remainingSpanPattern = regexp.MustCompile(`(?i)` + LabelRemaining + `\s*(?:</td>\s*)?<td[^>]*>\s*<span[^>]*>\s*([^<]*?)\s*<`)
	// Còn trống: ... Hết chỗ
	remainingNoSeatsPattern = regexp.MustCompile(`(?is)` + LabelRemaining + `.{0,300}?` + MarkerNoSeats)

	classCodePattern     = regexp.MustCompile(`(?i)^([A-Z]{2,}\s*\d+)`)
	classTitlePattern    = regexp.MustCompile(`(?i)^([A-Z]{2,}\s*\d+)\s*[–-]\s*(.+?)(?:\s*/|$)`)
	rawClassCodePattern  = regexp.MustCompile(`(?i)class="title-1"[^>]*>\s*([A-Z]{2,}\s*\d+)`)
	rawClassTitlePattern = regexp.MustCompile(`(?i)class="title-1"[^>]*>\s*[A-Z]{2,}\s*\d+\s*[–-]\s*([^</]+)`)
	rawScheduleList      = regexp.MustCompile(`(?is)<ul[^>]*class="thugio"[^>]*>(.*?)</ul>`)
	rawScheduleItem      = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
)

var remainingStrategies = []countStrategy{
	remainingFrom(remainingStyledPattern),
	remainingFrom(remainingSpanPattern),
	remainingNoSeats,
}

var classNameStrategies = []stringStrategy{
	cssText(".ico-namnganhhoc span"),
	classNameFromTitle,
	classNameFromRawTitle,
}

var classCodeStrategies = []stringStrategy{
	classCodeFromTitle,
	classCodeFromRawTitle,
}

var registrationCodeStrategies = []stringStrategy{
	labelledCell(LabelRegistrationCode, "span"),
}

var semesterStrategies = []stringStrategy{
	labelledCell(LabelSemester, "span"),
}

var statusStrategies = []stringStrategy{
	labelledCell(LabelStatus, "font"),
	labelledCell(LabelStatus, ""),
}

var scheduleStrategies = []stringStrategy{
	scheduleFromList,
	scheduleFromRawList,
}

// parseCount accepts plain ASCII digits only.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func remainingFrom(pattern *regexp.Regexp) countStrategy {
	return func(p *page) (int, bool) {
		m := pattern.FindStringSubmatch(p.raw)
		if m == nil {
			return 0, false
		}
		return parseCount(m[1])
	}
}

func remainingNoSeats(p *page) (int, bool) {
	return 0, remainingNoSeatsPattern.MatchString(p.raw)
}

func cssText(selector string) stringStrategy {
	return func(p *page) (string, bool) {
		if p.doc == nil {
			return "", false
		}
		sel := p.doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		return compactWhitespace(sel.Text()), true
	}
}

func titleText(p *page) string {
	if p.doc == nil {
		return ""
	}
	return compactWhitespace(p.doc.Find(".title-1").First().Text())
}

func classNameFromTitle(p *page) (string, bool) {
	m := classTitlePattern.FindStringSubmatch(titleText(p))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[2]), true
}

func classNameFromRawTitle(p *page) (string, bool) {
	m := rawClassTitlePattern.FindStringSubmatch(p.raw)
	if m == nil {
		return "", false
	}
	return stripMarkup(m[1]), true
}

func classCodeFromTitle(p *page) (string, bool) {
	m := classCodePattern.FindStringSubmatch(titleText(p))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func classCodeFromRawTitle(p *page) (string, bool) {
	m := rawClassCodePattern.FindStringSubmatch(p.raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// labelledCell reads the cell next to a td.td-title carrying label. With an
// empty tag the whole cell's text is used.
func labelledCell(label, tag string) stringStrategy {
	xpath := fmt.Sprintf(
		`//td[contains(concat(' ', normalize-space(@class), ' '), ' td-title ')][contains(., '%s')]/following-sibling::td[1]`,
		label,
	)
	if tag != "" {
		xpath += "//" + tag
	}
	return func(p *page) (string, bool) {
		text := selectText(p.node, xpath)
		return text, text != ""
	}
}

func scheduleFromList(p *page) (string, bool) {
	if p.doc == nil {
		return "", false
	}
	var items []string
	p.doc.Find("ul.thugio").First().Find("li").Each(func(_ int, s *goquery.Selection) {
		if text := compactWhitespace(s.Text()); text != "" {
			items = append(items, text)
		}
	})
	return joinSchedule(items)
}

func scheduleFromRawList(p *page) (string, bool) {
	list := rawScheduleList.FindStringSubmatch(p.raw)
	if list == nil {
		return "", false
	}
	var items []string
	for _, li := range rawScheduleItem.FindAllStringSubmatch(list[1], -1) {
		if text := stripMarkup(li[1]); text != "" {
			items = append(items, text)
		}
	}
	return joinSchedule(items)
}

func joinSchedule(items []string) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	return strings.Join(items, ", "), true
}
