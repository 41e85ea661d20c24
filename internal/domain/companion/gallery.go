package companion

// Agent 展示墙上的示例代理卡片
type Agent struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Image       string   `json:"image"`
	Specialties []string `json:"specialties"`
	Rating      float64  `json:"rating"`
	Username    string   `json:"username"`
	Users       int      `json:"users"`
	Address     string   `json:"address"`
	Ticker      string   `json:"ticker"`
	Value       float64  `json:"value"`
	BotUsername string   `json:"bot_username"`
}

const showcaseBot = "agentxweb3_bot"

var gallery = []Agent{
	{1, "DeFiSage", "/agents/1.jpg", []string{"DeFi Analytics", "Yield Optimization", "Risk Assessment"}, 4.9, "@defisage", 8420, "0x1234567890123456789012345678901234567890", "$DEFI", 1.25, showcaseBot},
	{2, "FitnessAI", "/agents/2.jpg", []string{"Workout Analysis", "Progress Tracking", "Nutrition Plans"}, 4.7, "@fitnessai", 7230, "0x2345678901234567890123456789012345678901", "$FIT", 0.85, showcaseBot},
	{3, "NFTGuru", "/agents/3.jpg", []string{"Collection Analysis", "Rarity Checks", "Market Trends"}, 4.8, "@nftguru", 6150, "0x3456789012345678901234567890123456789012", "$NFT", 1.15, showcaseBot},
	{4, "CodeMentor", "/agents/4.jpg", []string{"Code Review", "Bug Detection", "Smart Contracts"}, 4.9, "@codementor", 5840, "0x4567890123456789012345678901234567890123", "$CODE", 0.95, showcaseBot},
	{5, "ChartMaster", "/agents/5.jpg", []string{"Technical Analysis", "Pattern Recognition", "Trade Signals"}, 4.8, "@chartmaster", 7840, "0x5678901234567890123456789012345678901234", "$CHART", 1.35, showcaseBot},
	{6, "StudyBuddy", "/agents/6.jpg", []string{"Math Help", "Science Topics", "Test Prep"}, 4.6, "@studybuddy", 9240, "0x6789012345678901234567890123456789012345", "$STUDY", 0.75, showcaseBot},
	{7, "TravelGuide", "/agents/7.jpg", []string{"Trip Planning", "Local Info", "Budget Travel"}, 4.7, "@travelguide", 4920, "0x7890123456789012345678901234567890123456", "$TRAVEL", 0.65, showcaseBot},
	{8, "GameCoach", "/agents/8.jpg", []string{"GameFi Strategy", "P2E Optimization", "Guild Management"}, 4.8, "@gamecoach", 6730, "0x8901234567890123456789012345678901234567", "$GAME", 0.95, showcaseBot},
}

// Gallery 展示墙全部卡片（副本）
func Gallery() []Agent {
	out := make([]Agent, len(gallery))
	for i, a := range gallery {
		a.Specialties = append([]string(nil), a.Specialties...)
		out[i] = a
	}
	return out
}

// GalleryAgent 按 ID 查找卡片
func GalleryAgent(id int) (Agent, bool) {
	for _, a := range gallery {
		if a.ID == id {
			a.Specialties = append([]string(nil), a.Specialties...)
			return a, true
		}
	}
	return Agent{}, false
}
