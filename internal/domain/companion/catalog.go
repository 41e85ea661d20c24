package companion

// Option 带说明的单选项
type Option struct {
	Value       string `json:"value"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Capability 可勾选的链上动作
type Capability struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog 创建表单使用的全部预置选项
type Catalog struct {
	Types              []string     `json:"types"`
	Specialties        []string     `json:"specialties"`
	Adjectives         []string     `json:"adjectives"`
	Frameworks         []Option     `json:"frameworks"`
	LaunchTypes        []Option     `json:"launch_types"`
	ActionCapabilities []Capability `json:"action_capabilities"`
}

var (
	companionTypes = []string{
		"Finance", "Technology", "Health", "Education",
		"Art", "Science", "Entertainment", "Other",
	}

	specialties = []string{
		"Stocks", "Crypto", "Personal Finance",
		"AI", "Blockchain", "Web Development",
		"Nutrition", "Fitness", "Mental Health",
		"Digital Art", "Art History", "Creative Writing",
		"Sustainability", "Climate Science", "Green Tech",
		"Astronomy", "Space Technology", "Astrophysics",
	}

	adjectives = []string{
		"Friendly", "Witty", "Analytical", "Patient", "Bold",
		"Curious", "Sarcastic", "Wise", "Energetic", "Calm",
	}

	frameworks = []Option{
		{Value: string(FrameworkEliza), Title: "Eliza Framework"},
		{Value: string(FrameworkGoat), Title: "GOAT Framework"},
		{Value: string(FrameworkZerepy), Title: "Zerepy Framework"},
	}

	launchTypes = []Option{
		{Value: string(LaunchNormal), Title: "Normal Launch", Description: "Launch a new token for your agent"},
		{Value: string(LaunchFair), Title: "Fair Launch", Description: "Your token will be launched randomly within a 24-hour time frame"},
		{Value: string(LaunchNoToken), Title: "No Token", Description: "Launch your agent without a token. You can attach or launch one later."},
		{Value: string(LaunchNFT), Title: "Use NFT", Description: "Launch an agent for your NFT. Bring your NFT to life."},
	}

	actionCapabilities = []Capability{
		{ID: "launchMemecoin", Label: "Launch Memecoin"},
		{ID: "launchNFT", Label: "Launch NFT"},
		{ID: "trade", Label: "Trade"},
		{ID: "airdrop", Label: "Airdrop"},
		{ID: "deployNFT", Label: "Deploy NFT"},
		{ID: "staking", Label: "Staking"},
		{ID: "defi", Label: "DeFi Interactions"},
		{ID: "governance", Label: "Governance Voting"},
		{ID: "bridging", Label: "Cross-chain Bridging"},
		{ID: "smartContracts", Label: "Deploy Smart Contracts"},
	}
)

// DefaultCatalog 返回预置选项的副本
func DefaultCatalog() Catalog {
	return Catalog{
		Types:              append([]string(nil), companionTypes...),
		Specialties:        append([]string(nil), specialties...),
		Adjectives:         append([]string(nil), adjectives...),
		Frameworks:         append([]Option(nil), frameworks...),
		LaunchTypes:        append([]Option(nil), launchTypes...),
		ActionCapabilities: append([]Capability(nil), actionCapabilities...),
	}
}
