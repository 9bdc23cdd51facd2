package prompt

import (
	"sort"
	"strings"

	"github.com/ai-gamemaster/knowledge-core/internal/knowledge"
)

// sourcePriority orders RAG result sections the same way the original
// RAGServiceImpl._format_knowledge_for_prompt did, so spells/monsters
// read first, then rules and equipment, then campaign lore and events;
// any other source reads last.
var sourcePriority = map[string]int{
	"spells":    1,
	"monsters":  2,
	"rules":     3,
	"equipment": 4,
}

func prioritySort(sources []string) {
	sort.Slice(sources, func(i, j int) bool {
		pi, pj := priorityOf(sources[i]), priorityOf(sources[j])
		if pi != pj {
			return pi < pj
		}
		return sources[i] < sources[j]
	})
}

func priorityOf(source string) int {
	if strings.HasPrefix(source, "lore_") {
		return 5
	}
	if strings.HasPrefix(source, "events_") {
		return 6
	}
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return 10
}

// FormatRAGBlock groups retrieval results by source and renders them as
// a bullet list suitable for prompt inclusion, mirroring
// RAGServiceImpl._format_knowledge_for_prompt.
func FormatRAGBlock(results knowledge.Results) string {
	if len(results.Items) == 0 {
		return ""
	}

	grouped := make(map[string][]knowledge.Item)
	for _, it := range results.Items {
		grouped[it.Source] = append(grouped[it.Source], it)
	}

	sources := make([]string, 0, len(grouped))
	for src := range grouped {
		sources = append(sources, src)
	}
	prioritySort(sources)

	var sections []string
	for _, src := range sources {
		header := titleCase(strings.ReplaceAll(src, "_", " "))
		var lines []string
		for _, it := range grouped[src] {
			content := strings.TrimSpace(it.Content)
			if content == "" {
				continue
			}
			if !strings.HasSuffix(content, ".") {
				content += "."
			}
			lines = append(lines, "- "+content)
		}
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, "**"+header+":**\n"+strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return ""
	}
	return "**Relevant Information:**\n\n" + strings.Join(sections, "\n\n")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
