package matcher

import (
	"encoding/xml"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/allanpk716/docx_templater/internal/domain"
)

const (
	// MarkerOpen 标记起始定界符
	MarkerOpen = "${"
	// MarkerClose 标记结束定界符
	MarkerClose = "}"
	// CloneSeparator 行克隆后标记名与序号之间的分隔符
	CloneSeparator = "#"
)

// InvalidNameChars 标记名中不允许出现的字符：定界符、尖括号以及写入 XML 时会被转义的字符
const InvalidNameChars = "${}<>&'\""

var (
	markerPattern = regexp.MustCompile(`\$\{([^${}<>&'"]+)\}`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
)

// markerMatcher 标记匹配器实现
type markerMatcher struct {
	patternCache map[string]*regexp.Regexp
}

// NewMarkerMatcher 创建新的标记匹配器
func NewMarkerMatcher() domain.MarkerMatcher {
	return &markerMatcher{
		patternCache: make(map[string]*regexp.Regexp),
	}
}

// FindMatches 在内容中查找指定标记，结果按位置倒序排列
func (mm *markerMatcher) FindMatches(content string, markers map[string]string) []domain.Match {
	var matches []domain.Match

	for name, replacement := range markers {
		pattern := mm.getOrCreatePattern(regexp.QuoteMeta(FormatMarker(name)))
		for _, index := range pattern.FindAllStringIndex(content, -1) {
			matches = append(matches, domain.Match{
				Marker:      name,
				Replacement: replacement,
				StartPos:    index[0],
				EndPos:      index[1],
			})
		}
	}

	// 从后往前替换避免位置偏移
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartPos > matches[j].StartPos
	})

	return matches
}

// FindAll 查找内容中的所有标记，结果按位置倒序排列
func (mm *markerMatcher) FindAll(content string) []domain.Match {
	indexes := markerPattern.FindAllStringSubmatchIndex(content, -1)
	matches := make([]domain.Match, 0, len(indexes))
	for i := len(indexes) - 1; i >= 0; i-- {
		index := indexes[i]
		matches = append(matches, domain.Match{
			Marker:   content[index[2]:index[3]],
			StartPos: index[0],
			EndPos:   index[1],
		})
	}
	return matches
}

// ReplaceMatches 根据匹配结果替换内容，matches 需按位置倒序排列
func (mm *markerMatcher) ReplaceMatches(content string, matches []domain.Match) string {
	result := content

	for _, match := range matches {
		if match.StartPos >= 0 && match.EndPos <= len(result) && match.StartPos <= match.EndPos {
			result = result[:match.StartPos] + match.Replacement + result[match.EndPos:]
		}
	}

	return result
}

func (mm *markerMatcher) getOrCreatePattern(escaped string) *regexp.Regexp {
	if pattern, exists := mm.patternCache[escaped]; exists {
		return pattern
	}

	pattern := regexp.MustCompile(escaped)
	mm.patternCache[escaped] = pattern
	return pattern
}

// ValidateMarkerFormat 验证标记格式是否为 ${name}
func ValidateMarkerFormat(marker string) bool {
	if len(marker) < len(MarkerOpen)+len(MarkerClose)+1 {
		return false
	}
	loc := markerPattern.FindStringIndex(marker)
	return loc != nil && loc[0] == 0 && loc[1] == len(marker)
}

// ValidateMarkerName 验证标记名是否可以放入 ${...}
func ValidateMarkerName(name string) bool {
	return name != "" && !strings.ContainsAny(name, InvalidNameChars)
}

// ExtractMarkerName 从 ${name} 中提取标记名称
func ExtractMarkerName(marker string) string {
	if !ValidateMarkerFormat(marker) {
		return marker
	}
	return marker[len(MarkerOpen) : len(marker)-len(MarkerClose)]
}

// FormatMarker 将标记名称格式化为 ${name}
func FormatMarker(name string) string {
	if ValidateMarkerFormat(name) {
		return name
	}
	return MarkerOpen + name + MarkerClose
}

// Suffix 返回第 index 个克隆行中的标记名 (name#index)
func Suffix(name string, index int) string {
	return name + CloneSeparator + strconv.Itoa(index)
}

// SplitSuffix 拆分 name#index，没有合法后缀时 index 为 0
func SplitSuffix(name string) (string, int) {
	i := strings.LastIndex(name, CloneSeparator)
	if i < 0 || i == len(name)-1 {
		return name, 0
	}
	digits := name[i+1:]
	if digits[0] == '0' {
		return name, 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return name, 0
	}
	return name[:i], n
}

// IsSuffixed 判断标记名是否带有克隆序号
func IsSuffixed(name string) bool {
	_, n := SplitSuffix(name)
	return n > 0
}

// Names 返回内容中出现的标记名，去重并保持首次出现的顺序
func Names(content string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range markerPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// 换行和制表符写成空格，w:t 中只能放纯文本
var whitespaceReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ")

// CleanValue 去掉值中的标签，把 & 替换为 and，换行和制表符替换为空格
func CleanValue(value string) string {
	value = whitespaceReplacer.Replace(value)
	return strings.ReplaceAll(StripTags(value), "&", "and")
}

// StripTags 移除所有 XML/HTML 标签
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// EscapeText 转义文本以便写入 w:t 元素
func EscapeText(text string) string {
	var b strings.Builder
	// strings.Builder 的 Write 不会返回错误
	_ = xml.EscapeText(&b, []byte(text))
	return b.String()
}
