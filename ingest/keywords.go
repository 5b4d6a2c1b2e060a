package ingest

import "strings"

// captionKeywords is the hair, makeup, and wedding vocabulary (English and
// Hebrew) that marks a caption as relevant. Matching is case-insensitive
// substring containment, so compound hashtags like #bridalhairstylist match
// via their stems.
var captionKeywords = []string{
	// Hair (English)
	"hair", "hairstyle", "hairstyles", "hairstylist", "hairstyling",
	"hairdesign", "hairdesigner", "hairartist", "hairart", "hairgoals",
	"hairinspo", "hairinspiration", "hairmagic", "hairtransformation",
	"updo", "updohair", "upstyle", "half-up", "ponytail", "bun",
	"braid", "braids", "braidedhair", "waves", "curls", "curly",
	"curlyhair", "curlybride", "curlyhairstyle", "curlinspo",
	"straight", "sleek", "bob", "lob", "pixie", "shag", "layers",
	"fringe", "bangs", "wolf cut", "fade", "skin fade",
	"bridalhair", "bridalhairstyle", "bridalhairstylist", "bridalstylist",
	"weddinghair", "weddinghairstyle", "weddinghairstylist", "bridehair",
	"bridehairstyle", "bridesmaid", "glamhair", "softglamhair",
	"romanticupdo", "editorialhair", "fashionhair", "luxuryhair",
	"beautyhair", "hairtutorial", "haircare", "hairideas", "hairtrends",

	// Makeup (English)
	"makeup", "make-up", "makeupartist", "makeupforbride",
	"bridalmakeup", "weddingmakeup", "bridalmakeuplook",
	"makeupideas", "makeupinspiration", "beautymakeup",
	"glammakeup", "editorialmakeup", "fashionmakeup",

	// Hair (Hebrew)
	"שיער", "תסרוקת", "תסרוקות", "תסרוקותכלה", "תסרוקותכלות",
	"שיערכלה", "שיערכלות", "שיערלחתונה", "שיערחתונה",
	"עיצובשיער", "עיצובשיערכלה", "עיצובשיערמקצועי",
	"מעצבתשיער", "מעצבשיער", "מעצבתשיערכלה",
	"תלתלים", "תלתליםזהאופי", "מתולתלות", "תלתליםוואו",
	"גלים", "שיערגלי", "שיערמתולתלות",
	"אסוף", "חצי-אסוף", "קוקו", "קוקס", "צמה", "צמות",
	"חלק", "החלקה", "תספורת", "גזירה",
	"כלה", "כלות", "כלה2025", "כלותישראל", "כלהמאושרת",
	"מלווה", "תסרוקתמלווה",
	"חתונה", "אירוע", "אירועים", "אירועיוקרה",
	"דיפיוזר", "ג'ל", "מוס", "קרםלחות", "מסכה",
	"נפח", "תנועה", "עמידות", "קלילות", "קופצניות",

	// Makeup (Hebrew)
	"איפור", "איפורכלה", "איפורמלווה", "מאפרת", "מאפר",
	"איפורושיער", "איפורעדין", "איפורזוהר", "איפורטבעי",

	// Wedding and events (terms not already covered above)
	"wedding", "bridal", "bride", "groom", "חתן",
}

// HairAndMakeupCaption reports whether a caption mentions hair, makeup, or
// wedding content. Empty captions never match.
func HairAndMakeupCaption(caption string) bool {
	if caption == "" {
		return false
	}
	lowered := strings.ToLower(caption)
	for _, keyword := range captionKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
