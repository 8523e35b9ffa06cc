package vdom

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// HTML renders node to a string. Event handlers and keys are not emitted;
// keys appear as data-key so a rendered tree can be matched back to nodes.
func HTML(node *VNode) string {
	var b strings.Builder
	_ = WriteHTML(&b, node)
	return b.String()
}

// WriteHTML streams node to w.
func WriteHTML(w io.Writer, node *VNode) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case KindText:
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	case KindFragment:
		for _, c := range node.Children {
			if err := WriteHTML(w, c); err != nil {
				return err
			}
		}
		return nil
	case KindComponent:
		if node.Comp == nil {
			return nil
		}
		return WriteHTML(w, node.Comp.Render())
	case KindElement:
		return writeElement(w, node)
	default:
		return fmt.Errorf("vdom: unknown node kind %d", node.Kind)
	}
}

func writeElement(w io.Writer, node *VNode) error {
	if _, err := fmt.Fprintf(w, "<%s", node.Tag); err != nil {
		return err
	}
	if node.Key != "" {
		if _, err := fmt.Fprintf(w, ` data-key="%s"`, escapeAttr(node.Key)); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(node.Props))
	for k := range node.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeAttr(w, k, node.Props[k]); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if voidElements[node.Tag] {
		return nil
	}
	for _, c := range node.Children {
		if err := WriteHTML(w, c); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</%s>", node.Tag)
	return err
}

func writeAttr(w io.Writer, key string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case func(), func(any):
		return nil
	case bool:
		if !v {
			return nil
		}
		_, err := fmt.Fprintf(w, " %s", key)
		return err
	case string:
		_, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(v))
		return err
	default:
		if strings.HasPrefix(key, "on") {
			return nil
		}
		_, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(fmt.Sprint(v)))
		return err
	}
}

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;",
	)
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
