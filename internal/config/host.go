package config

// HostConfig holds settings for one repository host.
type HostConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Marker is the CSS selector of content links on directory pages.
	// If empty, the crawler default for GitHub pages is used.
	Marker string `yaml:"marker,omitempty"`

	// Depth overrides the global crawl depth for this host.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are glob patterns of repository paths to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict extraction to files matching one of them.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .repocrawl configuration file.
type File struct {
	// Hosts maps host names (e.g. "github.com") to their settings.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults apply to every host unless overridden in Hosts.
	Defaults HostConfig `yaml:"defaults,omitempty"`
}

// GetHostConfig returns the configuration for host, merged over Defaults.
func (cf *File) GetHostConfig(host string) HostConfig {
	result := cf.Defaults

	// copy so that merging never writes into Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	hostConfig, ok := cf.Hosts[host]
	if !ok {
		return result
	}

	if hostConfig.Cookie != "" {
		result.Cookie = hostConfig.Cookie
	}
	if hostConfig.Marker != "" {
		result.Marker = hostConfig.Marker
	}
	if hostConfig.Depth != 0 {
		result.Depth = hostConfig.Depth
	}
	if len(hostConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range hostConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(hostConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = hostConfig.IgnorePatterns
	}
	if len(hostConfig.FollowPatterns) > 0 {
		result.FollowPatterns = hostConfig.FollowPatterns
	}

	return result
}
