package congressapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"congresshub-backend/internal/telemetry"
	"congresshub-backend/internal/upstream"
)

const (
	report_client_decode     = "client.decode"
	report_client_term_match = "client.term-match"
)

// Client wraps the shared rate-limited upstream client with one adapter per
// entity kind.
type Client struct {
	upstream *upstream.Client
	tel      telemetry.API
}

func NewClient(u *upstream.Client, tel telemetry.API) Client {
	return Client{
		upstream: u,
		tel:      telemetry.NewScopedAPI("congressapi", tel),
	}
}

func fetchList[T any](
	ctx context.Context,
	c Client,
	path string,
	offset, limit int,
	decode func([]byte) ([]T, int, error),
) ([]T, int, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	res, err := c.upstream.Fetch(ctx, path, query)
	if err != nil {
		return nil, 0, err
	}

	items, total, err := decode(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_decode, path, err)
		return nil, 0, &upstream.Error{
			Kind: upstream.KindPermanent,
			Url:  res.Request.URL,
			Err:  fmt.Errorf("decode %s: %w", path, err),
		}
	}
	return items, total, nil
}

// Members streams one record per member serving in the target congress.
// Members listed with several terms yield only the term covering the
// target; a member with no such term is skipped with a warning.
func (c Client) Members(targetCongress int) *Stream[MemberRecord] {
	path := fmt.Sprintf("/member/congress/%d", targetCongress)
	return newStream(func(ctx context.Context, offset, limit int) ([]MemberRecord, int, error) {
		return fetchList(ctx, c, path, offset, limit, func(body []byte) ([]MemberRecord, int, error) {
			var list memberListJson
			err := json.Unmarshal(body, &list)
			if err != nil {
				return nil, 0, err
			}

			records := make([]MemberRecord, 0, len(list.Members))
			for _, m := range list.Members {
				term, ok := termForCongress(m.Terms, targetCongress)
				if !ok {
					c.tel.ReportWarning(report_client_term_match, m.BioguideId, targetCongress)
					continue
				}
				records = append(records, MemberRecord{
					BioguideId: m.BioguideId,
					FirstName:  m.FirstName,
					LastName:   m.LastName,
					State:      m.State,
					District:   m.District,
					Party:      m.Party,
					Chamber:    term.Chamber,
					Congress:   targetCongress,
					TermStart:  term.Start,
					TermEnd:    term.End,
					IsCurrent:  term.IsCurrent,
				})
			}
			return records, list.Pagination.Count, nil
		})
	})
}

func termForCongress(terms []memberTermJson, congress int) (memberTermJson, bool) {
	for _, t := range terms {
		if t.Congress == congress {
			return t, true
		}
	}
	return memberTermJson{}, false
}

// Committees streams the full committee roster chamber by chamber, with
// top-level committees ordered before their subcommittees. The roster is
// not scoped to a congress upstream.
func (c Client) Committees() Source[CommitteeRecord] {
	chambers := []string{"house", "senate", "joint"}
	streams := make([]Source[CommitteeRecord], len(chambers))
	for i, chamber := range chambers {
		path := fmt.Sprintf("/committee/%s", chamber)
		streams[i] = &parentsFirst{src: newStream(func(ctx context.Context, offset, limit int) ([]CommitteeRecord, int, error) {
			return fetchList(ctx, c, path, offset, limit, decodeCommitteePage)
		})}
	}
	return &concatStream[CommitteeRecord]{streams: streams}
}

func decodeCommitteePage(body []byte) ([]CommitteeRecord, int, error) {
	var list committeeListJson
	err := json.Unmarshal(body, &list)
	if err != nil {
		return nil, 0, err
	}

	records := make([]CommitteeRecord, 0, len(list.Committees))
	for _, item := range list.Committees {
		records = append(records, CommitteeRecord{
			Name:           item.Name,
			Chamber:        item.Chamber,
			CommitteeType:  item.CommitteeType,
			IsSubcommittee: item.IsSubcommittee,
			ParentName:     item.ParentName,
			Jurisdiction:   item.Jurisdiction,
			HearingsUrl:    item.Urls.Hearings,
			MembersUrl:     item.Urls.Members,
			OfficialUrl:    item.Urls.Official,
		})
	}
	return records, list.Pagination.Count, nil
}

// parentsFirst drains one chamber's roster up front and reorders it so
// top-level committees come before subcommittees, even when a parent
// lands on a later page than its subcommittee. Chamber rosters are small
// so the buffering is cheap.
type parentsFirst struct {
	src     Source[CommitteeRecord]
	records []CommitteeRecord
	loaded  bool
	err     error
}

func (p *parentsFirst) Next(ctx context.Context) (CommitteeRecord, bool, error) {
	if p.err != nil {
		return CommitteeRecord{}, false, p.err
	}
	if !p.loaded {
		for {
			record, ok, err := p.src.Next(ctx)
			if err != nil {
				p.err = err
				return CommitteeRecord{}, false, err
			}
			if !ok {
				break
			}
			p.records = append(p.records, record)
		}
		sort.SliceStable(p.records, func(i, j int) bool {
			return !p.records[i].IsSubcommittee && p.records[j].IsSubcommittee
		})
		p.loaded = true
	}
	if len(p.records) == 0 {
		return CommitteeRecord{}, false, nil
	}
	record := p.records[0]
	p.records = p.records[1:]
	return record, true, nil
}

// Hearings streams one record per (hearing, committee) pair for the target
// congress. Hearings with no committee at all still yield one record.
func (c Client) Hearings(targetCongress int) *Stream[HearingRecord] {
	path := fmt.Sprintf("/hearing/%d", targetCongress)
	return newStream(func(ctx context.Context, offset, limit int) ([]HearingRecord, int, error) {
		return fetchList(ctx, c, path, offset, limit, func(body []byte) ([]HearingRecord, int, error) {
			var list hearingListJson
			err := json.Unmarshal(body, &list)
			if err != nil {
				return nil, 0, err
			}

			var records []HearingRecord
			for _, h := range list.Hearings {
				base := HearingRecord{
					UpstreamId: h.Id,
					Congress:   targetCongress,
					Title:      h.Title,
					Scheduled:  h.Scheduled,
					Location:   h.Location,
					Room:       h.Room,
					Status:     h.Status,
				}
				if len(h.Committees) == 0 {
					records = append(records, base)
					continue
				}
				for _, cm := range h.Committees {
					record := base
					record.CommitteeName = cm.Name
					record.CommitteeChamber = cm.Chamber
					record.CommitteePrimary = cm.IsPrimary
					records = append(records, record)
				}
			}
			return records, list.Pagination.Count, nil
		})
	})
}

// Sessions streams the known congressional sessions.
func (c Client) Sessions() *Stream[SessionRecord] {
	return newStream(func(ctx context.Context, offset, limit int) ([]SessionRecord, int, error) {
		return fetchList(ctx, c, "/congress", offset, limit, func(body []byte) ([]SessionRecord, int, error) {
			var list sessionListJson
			err := json.Unmarshal(body, &list)
			if err != nil {
				return nil, 0, err
			}
			records := make([]SessionRecord, 0, len(list.Congresses))
			for _, s := range list.Congresses {
				records = append(records, SessionRecord{
					Congress:  s.Congress,
					StartYear: s.StartYear,
					EndYear:   s.EndYear,
					IsCurrent: s.IsCurrent,
				})
			}
			return records, list.Pagination.Count, nil
		})
	})
}

// LatestCongress resolves the default target congress from the upstream's
// session listing: the one flagged current, else the highest number.
func (c Client) LatestCongress(ctx context.Context) (int, error) {
	stream := c.Sessions()
	var latest int
	for {
		s, ok, err := stream.Next(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if s.IsCurrent {
			return s.Congress, nil
		}
		if s.Congress > latest {
			latest = s.Congress
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("upstream reported no congresses")
	}
	return latest, nil
}
