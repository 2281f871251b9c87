package hook

import (
	"fmt"
	"net/url"

	"github.com/opst/alrun/pkg/domain"
	"gopkg.in/yaml.v3"
)

// WebHook is a set of webhook URLs called before/after each task.
type WebHook struct {
	Before []*url.URL
	After  []*url.URL
}

func parseURLs(field string, raw []string) ([]*url.URL, error) {
	urls := make([]*url.URL, len(raw))
	for i, u := range raw {
		f := fmt.Sprintf("%s[%d]", field, i)
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, domain.NewConfigError(domain.ErrUnsupportedValue, f, u, err.Error())
		}
		if !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, domain.NewConfigError(domain.ErrUnsupportedValue, f, u, "should be absolute http(s) URL")
		}
		urls[i] = parsed
	}
	return urls, nil
}

func (wh *WebHook) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Before []string `yaml:"before"`
		After  []string `yaml:"after"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	before, err := parseURLs("before", raw.Before)
	if err != nil {
		return domain.Within("hooks", err)
	}
	after, err := parseURLs("after", raw.After)
	if err != nil {
		return domain.Within("hooks", err)
	}

	wh.Before = before
	wh.After = after
	return nil
}

// IsEmpty tells no URLs are configured.
func (wh WebHook) IsEmpty() bool {
	return len(wh.Before) == 0 && len(wh.After) == 0
}
