package config

// SiteConfig holds per-site overrides for crawl behavior. Keys in the
// config file are hostnames (e.g. "docs.example.com").
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// Zero means use the global depth.
	Depth int `yaml:"depth,omitempty"`

	// DelayMillis overrides the global crawl delay, in milliseconds.
	// Zero means use the global delay.
	DelayMillis int `yaml:"delayMillis,omitempty"`

	// Requirement overrides the global requirement keyword for this site.
	Requirement string `yaml:"requirement,omitempty"`
}

// File represents the structure of the .pagelens configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains configuration applied to every site unless
	// overridden by a site-specific entry.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the merged configuration for a hostname:
// defaults first, then site-specific non-zero values on top.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if siteConfig.DelayMillis != 0 {
			result.DelayMillis = siteConfig.DelayMillis
		}
		if siteConfig.Requirement != "" {
			result.Requirement = siteConfig.Requirement
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
