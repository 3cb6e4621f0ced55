package congressapi

// wire shapes of the upstream JSON API. every listing reports its total in
// a pagination object.

type paginationJson struct {
	Count int `json:"count"`
}

type memberTermJson struct {
	Congress  int    `json:"congress"`
	Chamber   string `json:"chamber"`
	Start     string `json:"start"`
	End       string `json:"end"`
	IsCurrent bool   `json:"is_current"`
}

type memberJson struct {
	BioguideId string           `json:"bioguide_id"`
	FirstName  string           `json:"first_name"`
	LastName   string           `json:"last_name"`
	State      string           `json:"state"`
	District   *int             `json:"district"`
	Party      string           `json:"party"`
	Terms      []memberTermJson `json:"terms"`
}

type memberListJson struct {
	Members    []memberJson   `json:"members"`
	Pagination paginationJson `json:"pagination"`
}

type committeeUrlsJson struct {
	Hearings string `json:"hearings"`
	Members  string `json:"members"`
	Official string `json:"official"`
}

type committeeJson struct {
	Name           string            `json:"name"`
	Chamber        string            `json:"chamber"`
	CommitteeType  string            `json:"committee_type"`
	IsSubcommittee bool              `json:"is_subcommittee"`
	ParentName     string            `json:"parent_name"`
	Jurisdiction   string            `json:"jurisdiction"`
	Urls           committeeUrlsJson `json:"urls"`
}

type committeeListJson struct {
	Committees []committeeJson `json:"committees"`
	Pagination paginationJson  `json:"pagination"`
}

type hearingCommitteeJson struct {
	Name      string `json:"name"`
	Chamber   string `json:"chamber"`
	IsPrimary bool   `json:"is_primary"`
}

type hearingJson struct {
	Id         string                 `json:"id"`
	Title      string                 `json:"title"`
	Scheduled  string                 `json:"scheduled"`
	Location   string                 `json:"location"`
	Room       string                 `json:"room"`
	Status     string                 `json:"status"`
	Committees []hearingCommitteeJson `json:"committees"`
}

type hearingListJson struct {
	Hearings   []hearingJson  `json:"hearings"`
	Pagination paginationJson `json:"pagination"`
}

type sessionJson struct {
	Congress  int  `json:"congress"`
	StartYear int  `json:"start_year"`
	EndYear   int  `json:"end_year"`
	IsCurrent bool `json:"is_current"`
}

type sessionListJson struct {
	Congresses []sessionJson  `json:"congresses"`
	Pagination paginationJson `json:"pagination"`
}

// source records emitted by the adapters, still in upstream vocabulary. the
// normalizer turns these into canonical entities.

type MemberRecord struct {
	BioguideId string
	FirstName  string
	LastName   string
	State      string
	District   *int
	Party      string
	Chamber    string
	Congress   int
	TermStart  string
	TermEnd    string
	IsCurrent  bool
}

type CommitteeRecord struct {
	Name           string
	Chamber        string
	CommitteeType  string
	IsSubcommittee bool
	ParentName     string
	Jurisdiction   string
	HearingsUrl    string
	MembersUrl     string
	OfficialUrl    string
}

// HearingRecord is one (hearing, committee) pair. A hearing the upstream
// reports under multiple committees shows up once per committee, with the
// upstream's primary flag preserved for reconciliation.
type HearingRecord struct {
	UpstreamId       string
	Congress         int
	Title            string
	Scheduled        string
	Location         string
	Room             string
	Status           string
	CommitteeName    string
	CommitteeChamber string
	CommitteePrimary bool
}

type SessionRecord struct {
	Congress  int
	StartYear int
	EndYear   int
	IsCurrent bool
}
