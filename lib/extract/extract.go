// Package extract reads seat availability and class details out of
// courses.duytan.edu.vn class detail pages.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/fiffu/seatwatch/lib/models"
	"golang.org/x/net/html"
)

const (
	LabelRemaining        = "Còn trống:"
	LabelRegistrationCode = "Mã đăng ký:"
	LabelSemester         = "Học kỳ:"
	LabelStatus           = "Tình trạng đăng ký:"
	MarkerNoSeats         = "Hết chỗ"
)

var DiagnosticRemainingNotFound = fmt.Sprintf("remaining-seats field %q not found", strings.TrimSuffix(LabelRemaining, ":"))

// page holds one document in both raw and parsed form. node and doc are nil
// when the document could not be parsed; only raw strategies run then.
type page struct {
	raw  string
	node *html.Node
	doc  *goquery.Document
}

func newPage(raw string) *page {
	p := &page{raw: raw}
	node, err := htmlquery.Parse(strings.NewReader(raw))
	if err == nil && node != nil {
		p.node = node
		p.doc = goquery.NewDocumentFromNode(node)
	}
	return p
}

// Extract never panics; every failure ends up in the result's Diagnostic.
func Extract(raw string) (res models.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.FailedExtraction(fmt.Sprintf("parse error: %v", r))
		}
	}()

	p := newPage(raw)

	res.Remaining = firstCount(p, remainingStrategies)
	res.ClassName = firstString(p, classNameStrategies)
	res.ClassCode = firstString(p, classCodeStrategies)
	res.RegistrationCode = firstString(p, registrationCodeStrategies)
	res.Semester = firstString(p, semesterStrategies)
	res.Schedule = firstString(p, scheduleStrategies)
	res.RegistrationStatus = firstString(p, statusStrategies)

	if res.Remaining == nil {
		res.Diagnostic = DiagnosticRemainingNotFound
	}
	return res
}

type countStrategy func(p *page) (int, bool)

type stringStrategy func(p *page) (string, bool)

func firstCount(p *page, strategies []countStrategy) *int {
	for _, strategy := range strategies {
		if n, ok := tryCount(strategy, p); ok {
			return &n
		}
	}
	return nil
}

func firstString(p *page, strategies []stringStrategy) *string {
	for _, strategy := range strategies {
		if s, ok := tryString(strategy, p); ok && s != "" {
			return &s
		}
	}
	return nil
}

// A strategy that blows up counts as a miss so the next one gets a turn.
func tryCount(strategy countStrategy, p *page) (n int, ok bool) {
	defer func() {
		if recover() != nil {
			n, ok = 0, false
		}
	}()
	return strategy(p)
}

func tryString(strategy stringStrategy, p *page) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			s, ok = "", false
		}
	}()
	return strategy(p)
}
