package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	AssetsDir         string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	CheckInterval     int
	DiscoveryInterval int
	FetchTimeout      int
	APIAccessKey      string

	// Detection and migration tuning
	FailureThreshold        int
	SizeAnomalyFactor       float64
	PreferEarliestCandidate bool
	CanaryPages             []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
