package phototag

// LabelSets are the candidate descriptions a zero-shot scorer compares
// an image against, one set per analysis axis.
type LabelSets struct {
	Categories  []string
	Lighting    []string
	Composition []string
	Mood        []string
	Subjects    []string
}

// DefaultLabelSets is the curated photography vocabulary.
var DefaultLabelSets = LabelSets{
	Categories: []string{
		"street photography in an urban environment",
		"nature landscape with mountains or forests",
		"portrait photography focusing on a person",
		"cityscape showing buildings and architecture",
		"wildlife photography of animals in their habitat",
		"minimalist composition with negative space",
		"travel photography documenting a destination",
		"architectural photography of structures",
		"food photography of meals or ingredients",
	},
	Lighting: []string{
		"golden hour lighting with warm sunset tones",
		"blue hour lighting with cool twilight tones",
		"harsh midday sunlight with strong shadows",
		"soft diffused lighting from overcast sky",
		"night photography with artificial city lights",
		"backlit subject with rim lighting effect",
		"dramatic lighting with high contrast shadows",
		"flat even lighting with minimal shadows",
		"dappled light filtering through trees",
		"studio lighting with controlled setup",
	},
	Composition: []string{
		"rule of thirds composition",
		"symmetrical composition with mirror balance",
		"leading lines drawing eye into the frame",
		"frame within a frame composition",
		"negative space with minimalist subject placement",
		"diagonal lines creating dynamic energy",
		"centered subject with radial balance",
		"foreground interest with layered depth",
		"pattern and repetition composition",
		"dutch angle with tilted horizon",
	},
	Mood: []string{
		"energetic and vibrant atmosphere",
		"serene and peaceful quiet mood",
		"dramatic and intense emotional feeling",
		"nostalgic vintage aesthetic tone",
		"gritty urban documentary raw style",
		"ethereal and dreamlike soft quality",
		"melancholic and contemplative somber tone",
		"joyful and celebratory happy mood",
		"mysterious and moody dark atmosphere",
		"clean and modern minimalist feel",
	},
	Subjects: []string{
		"people and human subjects in the scene",
		"architectural details and building structures",
		"natural landscape elements like mountains or water",
		"street vendors and market scenes",
		"transportation vehicles like cars or trains",
		"cultural landmarks and monuments",
		"wildlife animals and birds",
		"urban street scenes with city life",
		"food and culinary subjects",
		"abstract patterns and textures",
	},
}
