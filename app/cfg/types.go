package cfg

type Cfg struct {
	// One-shot generation
	MemberID    string
	Count       int
	OutputFile  string
	ForceWrite  bool
	FeedURL     string
	Filters     []string
	DisplayName string
	AllowEmpty  bool
	ShowVersion bool

	// Service mode
	FeedsDir          string
	Listen            string
	SchedulerInterval int
	WorkerCount       int
	HistoryDB         string
	APIAccessKey      string

	// API client
	APIURL    string
	UserAgent string
	Timeout   int
	RateLimit float64

	// Application metadata
	Debug   bool
	Version string
}
