package leadership

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"congresshub-backend/internal/telemetry"
	"congresshub-backend/lib/htmlutil"
	libtelemetry "congresshub-backend/lib/telemetry"
	"congresshub-backend/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_scrape_fetch       = "scrape.fetch"
	report_scrape_malformed   = "scrape.malformed-row"
	report_scrape_no_chamber  = "scrape.section-without-chamber"
	report_scrape_empty_table = "scrape.empty-table"
)

// Record is one scraped leadership tuple. Names come straight off the page,
// cleaned of footnote markers and collapsed whitespace; matching them
// against store entities is the caller's job.
type Record struct {
	CommitteeName string
	Chamber       string
	Chair         string
	RankingMember string
	OfficialUrl   string
}

type Client struct {
	http    *resty.Client
	tel     telemetry.API
	pageUrl string
}

func NewClient(pageUrl string, tel telemetry.API) Client {
	httpClient := resty.New()
	httpClient.SetTimeout(time.Second * 30)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")

	libtelemetry.InstrumentResty(httpClient, "congresshub.scrapers.leadership")

	return Client{
		http:    httpClient,
		tel:     telemetry.NewScopedAPI("leadership_scraper", tel),
		pageUrl: pageUrl,
	}
}

// Fetch downloads and parses the leadership page. The page is organized in
// sections, each headed by the chamber name and carrying one table with a
// committee per row: committee, chair, ranking member.
func (c Client) Fetch(ctx context.Context) ([]Record, error) {
	res, err := c.http.R().SetContext(ctx).Get(c.pageUrl)
	if err != nil {
		c.tel.ReportBroken(report_scrape_fetch, c.pageUrl, err)
		return nil, fmt.Errorf("fetch leadership page: %w", err)
	}
	if res.StatusCode() != 200 {
		c.tel.ReportBroken(report_scrape_fetch, c.pageUrl, res.StatusCode())
		return nil, fmt.Errorf("fetch leadership page: status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse leadership page: %w", err)
	}

	return c.parse(ctx, doc), nil
}

func (c Client) parse(ctx context.Context, doc *goquery.Document) []Record {
	var records []Record

	doc.Find("section").Each(func(_ int, section *goquery.Selection) {
		heading := cellText(section.Find("h2").First())
		chamber := chamberFromHeading(heading)
		if chamber == "" {
			c.tel.ReportWarning(report_scrape_no_chamber, heading)
			return
		}

		rows := section.Find("table tbody tr")
		if rows.Length() == 0 {
			rows = section.Find("table tr")
		}
		if rows.Length() == 0 {
			c.tel.ReportWarning(report_scrape_empty_table, chamber)
			return
		}

		rows.Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 3 {
				// header rows and colspan notes fall out here
				return
			}

			committeeCell := cells.Eq(0)
			record := Record{
				Chamber:       chamber,
				CommitteeName: cellText(committeeCell),
				Chair:         cellText(cells.Eq(1)),
				RankingMember: cellText(cells.Eq(2)),
			}
			if anchors := htmlutil.GetAnchors(ctx, committeeCell.Find("a")); len(anchors) > 0 {
				record.OfficialUrl = anchors[0].Href
			}

			if record.CommitteeName == "" || (record.Chair == "" && record.RankingMember == "") {
				c.tel.ReportWarning(report_scrape_malformed, chamber, record)
				return
			}
			records = append(records, record)
		})
	})

	c.tel.ReportCount("scrape.records", int64(len(records)))
	return records
}

func cellText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	return htmlutil.CleanText(htmlutil.GetText(sel.Nodes[0]))
}

func chamberFromHeading(heading string) string {
	switch {
	case textutil.MatchName(heading, []string{"house"}):
		return "House"
	case textutil.MatchName(heading, []string{"senate"}):
		return "Senate"
	case textutil.MatchName(heading, []string{"joint"}):
		return "Joint"
	}
	return ""
}
