package textnorm

// Stop words removed before vectorization. The catalog is primarily French
// with English product names mixed in, so both lists are applied.
var stopwords = buildStopwords(
	// French
	"au", "aux", "avec", "ce", "ces", "cet", "cette", "dans", "de", "des", "du",
	"elle", "elles", "en", "et", "eux", "il", "ils", "je", "la", "le", "les",
	"leur", "leurs", "lui", "ma", "mais", "me", "mes", "moi", "mon", "ne",
	"nos", "notre", "nous", "on", "ou", "par", "pas", "pour", "qu", "que",
	"qui", "sa", "se", "ses", "son", "sont", "sur", "ta", "te", "tes", "toi",
	"ton", "tu", "un", "une", "vos", "votre", "vous", "est", "ont", "fait",
	"plus", "tout", "tous", "toute", "toutes", "comme", "sans", "aussi",
	"peut", "entre", "donc", "ainsi", "alors", "avant", "apres", "après",
	"autre", "autres", "cela", "chaque", "deux", "encore", "meme", "même",
	"tres", "très", "bien", "etre", "être", "avoir",
	// English
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
	"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
	"be", "been", "being", "it", "this", "that", "these", "those", "from",
	"up", "down", "over", "under", "again", "than", "so", "such", "into",
	"about", "between", "through", "during", "before", "after", "above",
	"below", "out", "off", "own", "same", "too", "very", "can", "will",
	"just", "not", "no", "nor", "all", "any", "both", "each", "few", "more",
	"most", "other", "some", "only", "now", "here", "there", "when", "where",
	"why", "how", "what", "which", "who", "whom",
)

func buildStopwords(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
