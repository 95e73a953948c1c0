package aws

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	pkgtypes "github.com/vietdv277/tierctl/pkg/types"
)

var (
	sectionRe = regexp.MustCompile(`^\[\s*(?:profile\s+)?([^\]]+?)\s*\]$`)
	regionRe  = regexp.MustCompile(`^region\s*=\s*(.+)$`)
)

// ListProfiles reads the shared credentials and config files. AWS_SHARED_CREDENTIALS_FILE
// and AWS_CONFIG_FILE override the default locations under ~/.aws.
func ListProfiles() ([]pkgtypes.AWSProfile, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	credPath := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credPath == "" {
		credPath = filepath.Join(home, ".aws", "credentials")
	}
	configPath := os.Getenv("AWS_CONFIG_FILE")
	if configPath == "" {
		configPath = filepath.Join(home, ".aws", "config")
	}

	return profilesFrom(credPath, configPath), nil
}

// ValidateProfile checks if a profile exists
func ValidateProfile(name string) bool {
	profiles, err := ListProfiles()
	if err != nil {
		return false
	}

	for _, p := range profiles {
		if p.Name == name {
			return true
		}
	}
	return false
}

// profilesFrom merges both files; a region from the config file fills in
// profiles defined only by credentials. Missing files are skipped.
func profilesFrom(credPath, configPath string) []pkgtypes.AWSProfile {
	merged := make(map[string]pkgtypes.AWSProfile)

	for _, p := range parseProfiles(credPath, pkgtypes.ProfileSourceCredentials) {
		merged[p.Name] = p
	}
	for _, p := range parseProfiles(configPath, pkgtypes.ProfileSourceConfig) {
		if existing, ok := merged[p.Name]; ok {
			if existing.Region == "" {
				existing.Region = p.Region
				merged[p.Name] = existing
			}
			continue
		}
		merged[p.Name] = p
	}

	profiles := make([]pkgtypes.AWSProfile, 0, len(merged))
	for _, p := range merged {
		profiles = append(profiles, p)
	}

	// "default" first, then alphabetical
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Name == "default" || profiles[j].Name == "default" {
			return profiles[i].Name == "default"
		}
		return profiles[i].Name < profiles[j].Name
	})

	return profiles
}

func parseProfiles(path string, source pkgtypes.ProfileSource) []pkgtypes.AWSProfile {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var profiles []pkgtypes.AWSProfile
	current := -1

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			// The config file also holds [sso-session x] and [services x] sections
			if source == pkgtypes.ProfileSourceConfig && strings.Contains(line, " ") && !strings.HasPrefix(strings.TrimPrefix(line, "["), "profile") {
				current = -1
				continue
			}
			profiles = append(profiles, pkgtypes.AWSProfile{Name: name, Source: source})
			current = len(profiles) - 1
			continue
		}

		if current >= 0 {
			if m := regionRe.FindStringSubmatch(line); m != nil {
				profiles[current].Region = strings.TrimSpace(m[1])
			}
		}
	}

	return profiles
}
