package kana

// moraTable maps romaji sequences to hiragana. Within a kana value the first
// romaji listed is the Hepburn spelling used by ToRomaji, so keep the
// preferred spelling ahead of its alternatives.
var moraTable = []struct {
	romaji string
	kana   string
}{
	// vowels
	{"a", "あ"}, {"i", "い"}, {"u", "う"}, {"e", "え"}, {"o", "お"},

	// k
	{"ka", "か"}, {"ki", "き"}, {"ku", "く"}, {"ke", "け"}, {"ko", "こ"},
	{"kya", "きゃ"}, {"kyi", "きぃ"}, {"kyu", "きゅ"}, {"kye", "きぇ"}, {"kyo", "きょ"},
	{"ca", "か"}, {"cu", "く"}, {"co", "こ"},
	// g
	{"ga", "が"}, {"gi", "ぎ"}, {"gu", "ぐ"}, {"ge", "げ"}, {"go", "ご"},
	{"gya", "ぎゃ"}, {"gyu", "ぎゅ"}, {"gyo", "ぎょ"},

	// s
	{"sa", "さ"}, {"shi", "し"}, {"si", "し"}, {"su", "す"}, {"se", "せ"}, {"so", "そ"},
	{"sha", "しゃ"}, {"shu", "しゅ"}, {"she", "しぇ"}, {"sho", "しょ"},
	{"sya", "しゃ"}, {"syu", "しゅ"}, {"sye", "しぇ"}, {"syo", "しょ"},
	{"shya", "しゃ"}, {"shyu", "しゅ"}, {"shyo", "しょ"},
	// z
	{"za", "ざ"}, {"ji", "じ"}, {"zi", "じ"}, {"zu", "ず"}, {"ze", "ぜ"}, {"zo", "ぞ"},
	{"ja", "じゃ"}, {"ju", "じゅ"}, {"je", "じぇ"}, {"jo", "じょ"},
	{"zya", "じゃ"}, {"zyu", "じゅ"}, {"zye", "じぇ"}, {"zyo", "じょ"},
	{"jya", "じゃ"}, {"jyu", "じゅ"}, {"jye", "じぇ"}, {"jyo", "じょ"},

	// t
	{"ta", "た"}, {"chi", "ち"}, {"ti", "ち"}, {"tsu", "つ"}, {"tu", "つ"}, {"te", "て"}, {"to", "と"},
	{"cha", "ちゃ"}, {"chu", "ちゅ"}, {"che", "ちぇ"}, {"cho", "ちょ"},
	{"tya", "ちゃ"}, {"tyu", "ちゅ"}, {"tye", "ちぇ"}, {"tyo", "ちょ"},
	{"cya", "ちゃ"}, {"cyu", "ちゅ"}, {"cyo", "ちょ"},
	{"chya", "ちゃ"}, {"chyu", "ちゅ"}, {"chyo", "ちょ"},
	{"thi", "てぃ"}, {"thu", "てゅ"}, {"twu", "とぅ"},
	{"tsa", "つぁ"}, {"tsi", "つぃ"}, {"tse", "つぇ"}, {"tso", "つぉ"},
	// d
	{"da", "だ"}, {"di", "ぢ"}, {"du", "づ"}, {"de", "で"}, {"do", "ど"},
	{"dya", "ぢゃ"}, {"dyu", "ぢゅ"}, {"dyo", "ぢょ"},
	{"dhi", "でぃ"}, {"dhu", "でゅ"}, {"dwu", "どぅ"},

	// n (the moraic n is handled by the transliterator)
	{"na", "な"}, {"ni", "に"}, {"nu", "ぬ"}, {"ne", "ね"}, {"no", "の"},
	{"nya", "にゃ"}, {"nyu", "にゅ"}, {"nyo", "にょ"},
	{"xn", "ん"},

	// h
	{"ha", "は"}, {"hi", "ひ"}, {"fu", "ふ"}, {"hu", "ふ"}, {"he", "へ"}, {"ho", "ほ"},
	{"hya", "ひゃ"}, {"hyu", "ひゅ"}, {"hyo", "ひょ"},
	{"fa", "ふぁ"}, {"fi", "ふぃ"}, {"fe", "ふぇ"}, {"fo", "ふぉ"},
	{"fyu", "ふゅ"},
	// b
	{"ba", "ば"}, {"bi", "び"}, {"bu", "ぶ"}, {"be", "べ"}, {"bo", "ぼ"},
	{"bya", "びゃ"}, {"byu", "びゅ"}, {"byo", "びょ"},
	// p
	{"pa", "ぱ"}, {"pi", "ぴ"}, {"pu", "ぷ"}, {"pe", "ぺ"}, {"po", "ぽ"},
	{"pya", "ぴゃ"}, {"pyu", "ぴゅ"}, {"pyo", "ぴょ"},

	// m
	{"ma", "ま"}, {"mi", "み"}, {"mu", "む"}, {"me", "め"}, {"mo", "も"},
	{"mya", "みゃ"}, {"myu", "みゅ"}, {"myo", "みょ"},
	// y
	{"ya", "や"}, {"yu", "ゆ"}, {"ye", "いぇ"}, {"yo", "よ"},
	// r
	{"ra", "ら"}, {"ri", "り"}, {"ru", "る"}, {"re", "れ"}, {"ro", "ろ"},
	{"rya", "りゃ"}, {"ryu", "りゅ"}, {"ryo", "りょ"},
	// w
	{"wa", "わ"}, {"wi", "うぃ"}, {"we", "うぇ"}, {"wo", "を"},
	{"wyi", "ゐ"}, {"wye", "ゑ"},
	// v
	{"vu", "ゔ"}, {"va", "ゔぁ"}, {"vi", "ゔぃ"}, {"ve", "ゔぇ"}, {"vo", "ゔぉ"},

	// small kana
	{"xa", "ぁ"}, {"xi", "ぃ"}, {"xu", "ぅ"}, {"xe", "ぇ"}, {"xo", "ぉ"},
	{"la", "ぁ"}, {"li", "ぃ"}, {"lu", "ぅ"}, {"le", "ぇ"}, {"lo", "ぉ"},
	{"xya", "ゃ"}, {"xyu", "ゅ"}, {"xyo", "ょ"},
	{"lya", "ゃ"}, {"lyu", "ゅ"}, {"lyo", "ょ"},
	{"xtu", "っ"}, {"xtsu", "っ"}, {"ltu", "っ"}, {"ltsu", "っ"},
	{"xwa", "ゎ"}, {"lwa", "ゎ"},
	{"xka", "ゕ"}, {"xke", "ゖ"},

	{"-", "ー"},
}

const (
	maxRomajiLen = 4
	sokuon       = "っ"
	moraicN      = "ん"
)
