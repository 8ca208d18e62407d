// Package urls canonicalizes class detail URLs and reads their identifying
// query parameters.
package urls

import (
	"errors"
	"net/url"
	"strings"
)

const (
	Host       = "courses.duytan.edu.vn"
	DetailPage = "Home_ChuongTrinhDaoTao.aspx"

	ViewModeParam  = "p"
	ViewModeDetail = "home_listclassdetail"
)

var ErrInvalidClassURL = errors.New("url must be a class detail link from " + Host)

type Params struct {
	ClassID    *string
	SemesterID *string
	Timespan   *string
}

// Normalize makes sure a detail page URL selects the detail view. Anything that
// does not parse, or is not a detail page on the upstream host, comes back as is.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !isDetailPage(u) {
		return raw
	}
	if u.Query().Has(ViewModeParam) {
		return raw
	}

	// Append rather than re-encode, so existing parameters keep their order.
	param := url.QueryEscape(ViewModeParam) + "=" + url.QueryEscape(ViewModeDetail)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery = u.RawQuery + "&" + param
	}
	return u.String()
}

func ParseParams(raw string) Params {
	u, err := url.Parse(raw)
	if err != nil {
		return Params{}
	}
	q := u.Query()
	return Params{
		ClassID:    lookup(q, "classid"),
		SemesterID: lookup(q, "semesterid"),
		Timespan:   lookup(q, "timespan"),
	}
}

// Validate accepts absolute http(s) links on the upstream host that name a class.
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidClassURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidClassURL
	}
	if !strings.EqualFold(u.Hostname(), Host) || u.Query().Get("classid") == "" {
		return ErrInvalidClassURL
	}
	return nil
}

func isDetailPage(u *url.URL) bool {
	return strings.EqualFold(u.Hostname(), Host) && strings.Contains(u.Path, DetailPage)
}

func lookup(q url.Values, key string) *string {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key)
	return &v
}
