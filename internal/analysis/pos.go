package analysis

// PosCSSClass returns the UI class name for an IPADIC major part of speech.
func PosCSSClass(major string) string {
	switch major {
	case "名詞":
		return "pos-noun"
	case "動詞":
		return "pos-verb"
	case "形容詞":
		return "pos-adjective"
	case "副詞":
		return "pos-adverb"
	case "助詞":
		return "pos-particle"
	case "助動詞":
		return "pos-aux-verb"
	case "接続詞":
		return "pos-conjunction"
	case "感動詞":
		return "pos-interjection"
	case "連体詞":
		return "pos-adnominal"
	case "記号":
		return "pos-symbol"
	default:
		return "pos-other"
	}
}

// PosEnglish returns the English label for an IPADIC major part of speech.
func PosEnglish(major string) string {
	switch major {
	case "名詞":
		return "Noun"
	case "動詞":
		return "Verb"
	case "形容詞":
		return "i-Adjective"
	case "形容動詞":
		return "na-Adjective"
	case "副詞":
		return "Adverb"
	case "助詞":
		return "Particle"
	case "助動詞":
		return "Aux. Verb"
	case "接続詞":
		return "Conjunction"
	case "感動詞":
		return "Interjection"
	case "連体詞":
		return "Adnominal"
	case "記号":
		return "Symbol"
	case "フィラー":
		return "Filler"
	default:
		return "Other"
	}
}
