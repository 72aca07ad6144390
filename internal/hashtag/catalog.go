package hashtag

import "postcraft-go/internal/model"

// keywordTag 是一条“关键词 → 标签”映射。
type keywordTag struct {
	keyword string
	tag     string
}

type curatedCategory struct {
	category  model.HashtagCategory
	relevance float64
	entries   []keywordTag
}

// 每个类别最多贡献的匹配数。
const maxMatchesPerCategory = 3

// curatedCatalog 按 industry > trending > skill > career 的相关度排列。
var curatedCatalog = []curatedCategory{
	{
		category:  model.CategoryIndustry,
		relevance: 0.85,
		entries: []keywordTag{
			{"marketing", "#Marketing"},
			{"technology", "#Technology"},
			{"software", "#SoftwareEngineering"},
			{"finance", "#Finance"},
			{"healthcare", "#Healthcare"},
			{"education", "#Education"},
			{"retail", "#Retail"},
			{"real estate", "#RealEstate"},
			{"ecommerce", "#Ecommerce"},
			{"e-commerce", "#Ecommerce"},
			{"startup", "#Startups"},
			{"saas", "#SaaS"},
			{"consulting", "#Consulting"},
			{"manufacturing", "#Manufacturing"},
		},
	},
	{
		category:  model.CategoryTrending,
		relevance: 0.80,
		entries: []keywordTag{
			{"ai", "#AI"},
			{"artificial intelligence", "#ArtificialIntelligence"},
			{"machine learning", "#MachineLearning"},
			{"remote", "#RemoteWork"},
			{"sustainability", "#Sustainability"},
			{"automation", "#Automation"},
			{"digital transformation", "#DigitalTransformation"},
			{"future of work", "#FutureOfWork"},
			{"web3", "#Web3"},
			{"cybersecurity", "#Cybersecurity"},
		},
	},
	{
		category:  model.CategorySkill,
		relevance: 0.75,
		entries: []keywordTag{
			{"leadership", "#Leadership"},
			{"communication", "#Communication"},
			{"productivity", "#Productivity"},
			{"data", "#DataAnalytics"},
			{"design", "#Design"},
			{"sales", "#Sales"},
			{"strategy", "#Strategy"},
			{"innovation", "#Innovation"},
			{"personalize", "#Personalization"},
			{"personalization", "#Personalization"},
			{"content", "#ContentStrategy"},
		},
	},
	{
		category:  model.CategoryCareer,
		relevance: 0.70,
		entries: []keywordTag{
			{"career", "#CareerGrowth"},
			{"hiring", "#Hiring"},
			{"job", "#JobSearch"},
			{"networking", "#Networking"},
			{"mentor", "#Mentorship"},
			{"interview", "#Interviewing"},
			{"promotion", "#CareerDevelopment"},
			{"learning", "#ContinuousLearning"},
			{"team", "#Teamwork"},
			{"business", "#Business"},
		},
	},
}
