package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/crypto/bcrypt"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to helpdesk! Let's configure the support assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	primary, err := selectProvider("Primary AI provider", ProviderGoogle)
	if err != nil {
		return nil, err
	}
	cfg.AI.Primary = primary

	fallback, err := selectProvider("Fallback AI provider", ProviderOpenAI)
	if err != nil {
		return nil, err
	}
	cfg.AI.Fallback = fallback

	registryPrompt := promptui.Prompt{
		Label:   "Warranty registry URL",
		Default: cfg.Warranty.RegistryURL,
	}
	if cfg.Warranty.RegistryURL, err = registryPrompt.Run(); err != nil {
		return nil, fmt.Errorf("registry url: %w", err)
	}

	storagePrompt := promptui.Select{
		Label: "Attachment storage",
		Items: []string{string(StorageLocal), string(StorageS3)},
	}
	_, backend, err := storagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("storage selection: %w", err)
	}
	cfg.Storage.Backend = StorageBackend(backend)
	if cfg.Storage.Backend == StorageS3 {
		bucketPrompt := promptui.Prompt{
			Label: "S3 bucket",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("bucket is required")
				}
				return nil
			},
		}
		if cfg.Storage.Bucket, err = bucketPrompt.Run(); err != nil {
			return nil, fmt.Errorf("s3 bucket: %w", err)
		}
	}

	hotlinePrompt := promptui.Prompt{
		Label:   "Support hotline shown to customers",
		Default: cfg.Hotline,
	}
	if cfg.Hotline, err = hotlinePrompt.Run(); err != nil {
		return nil, fmt.Errorf("hotline: %w", err)
	}

	if err := promptAdmin(cfg); err != nil {
		return nil, err
	}

	for _, spec := range []ProviderSpec{cfg.AI.Primary, cfg.AI.Fallback} {
		envVar := spec.APIKeyEnv
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running helpdesk server.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func selectProvider(label string, def ProviderType) (ProviderSpec, error) {
	items := []string{string(ProviderGoogle), string(ProviderOpenAI)}
	cursor := 0
	if def == ProviderOpenAI {
		cursor = 1
	}
	providerPrompt := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
	}
	_, choice, err := providerPrompt.Run()
	if err != nil {
		return ProviderSpec{}, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(choice)

	modelPrompt := promptui.Select{
		Label: "Model for " + choice,
		Items: ModelsFor(provider),
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return ProviderSpec{}, fmt.Errorf("model selection: %w", err)
	}

	spec := ProviderSpec{
		Type:      provider,
		Model:     model,
		APIKeyEnv: APIKeyEnvVar(provider),
	}
	if provider == ProviderOpenAI {
		spec.VisionModel = "gpt-4o"
	}
	return spec, nil
}

// promptAdmin adds one back-office account. An empty email skips it.
func promptAdmin(cfg *Config) error {
	emailPrompt := promptui.Prompt{
		Label: "Admin email (empty to skip)",
		Validate: func(s string) error {
			if s == "" {
				return nil
			}
			_, err := mail.ParseAddress(s)
			return err
		},
	}
	email, err := emailPrompt.Run()
	if err != nil {
		return fmt.Errorf("admin email: %w", err)
	}
	if email == "" {
		return nil
	}

	passwordPrompt := promptui.Prompt{
		Label: "Admin password",
		Mask:  '*',
		Validate: func(s string) error {
			if len(s) < 8 {
				return fmt.Errorf("use at least 8 characters")
			}
			return nil
		},
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return fmt.Errorf("admin password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	secret, err := randomSecret()
	if err != nil {
		return err
	}
	cfg.Admin.Accounts = append(cfg.Admin.Accounts, AdminAccount{Email: email, PasswordHash: string(hash)})
	cfg.Admin.JWTSecret = secret
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
