package app

import (
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/molted-work/molted-cli/internal/config"
	"github.com/molted-work/molted-cli/internal/credential"
	clierr "github.com/molted-work/molted-cli/internal/errors"
	"github.com/molted-work/molted-cli/internal/store"
)

type credentialStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *runtimeState) newAuthCommand() *cobra.Command {
	root := &cobra.Command{Use: "auth", Short: "Manage stored credentials"}

	var verify bool
	login := &cobra.Command{
		Use:   "login",
		Short: "Store an API key and optional wallet key",
		Long:  "Store the API key given by --api-key (or MOLTED_API_KEY) and, when --private-key is set, the wallet key in the local credential store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := strings.TrimSpace(s.settings.APIKey)
			if err := validateAPIKey(apiKey); err != nil {
				return err
			}
			var account *credential.Account
			privateKey := strings.TrimSpace(s.settings.PrivateKey)
			if privateKey != "" {
				acct, err := credential.DeriveAccount(privateKey)
				if err != nil {
					return err
				}
				account = acct
			}

			data := map[string]any{}
			if verify {
				client, err := s.apiClient(credential.Credential{APIKey: apiKey})
				if err != nil {
					return err
				}
				ctx, cancel := s.commandContext(cmd)
				defer cancel()
				me, err := client.GetMe(ctx)
				if err != nil {
					return err
				}
				data["agent"] = me
			}

			st, err := s.openStore(true)
			if err != nil {
				return err
			}
			stored := []string{store.NameAPIKey}
			if err := st.Set(store.NameAPIKey, apiKey); err != nil {
				return clierr.Wrap(clierr.CodeInternal, "write credential store", err)
			}
			if account != nil {
				if err := st.Set(store.NamePrivateKey, privateKey); err != nil {
					return clierr.Wrap(clierr.CodeInternal, "write credential store", err)
				}
				stored = append(stored, store.NamePrivateKey)
				data["wallet"] = newWalletView(account)
			}
			s.log.Debug().Strs("names", stored).Str("path", s.settings.StorePath).Msg("credentials stored")

			data["stored"] = stored
			data["store_path"] = s.settings.StorePath
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
	login.Flags().BoolVar(&verify, "verify", false, "Check the API key against the server before storing it")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := 0
			st, err := s.openStore(false)
			if err != nil {
				return err
			}
			if st != nil {
				removed, err = st.Delete(store.NameAPIKey, store.NamePrivateKey)
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "clear credential store", err)
				}
			}
			data := map[string]any{"removed": removed, "store_path": s.settings.StorePath}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report which credential sources are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := s.openStore(false)
			if err != nil {
				return err
			}
			apiStatus := credentialStatus{}
			if strings.TrimSpace(s.settings.APIKey) != "" {
				apiStatus = credentialStatus{Configured: true, Source: s.settings.APIKeySource}
			} else if v, ok, getErr := st.Get(store.NameAPIKey); getErr != nil {
				apiStatus = credentialStatus{Source: "store", Error: getErr.Error()}
			} else if ok && strings.TrimSpace(v) != "" {
				apiStatus = credentialStatus{Configured: true, Source: "store"}
			}

			keySource, sourceErr := privateKeySource(s.settings, st)
			keyStatus := credentialStatus{Source: keySource, Configured: keySource != "" && sourceErr == nil}
			if sourceErr != nil {
				keyStatus.Error = sourceErr.Error()
			}
			var wallet *walletView
			r, err := s.resolver()
			if err != nil {
				return err
			}
			acct, err := r.ResolveAccount(credential.InputsFromSettings(s.settings))
			if err == nil {
				wallet = newWalletView(acct)
			} else if keyStatus.Error == "" {
				if cErr, ok := clierr.As(err); ok {
					keyStatus.Error = cErr.Message
				} else {
					keyStatus.Error = err.Error()
				}
			}

			data := map[string]any{
				"api_key":     apiStatus,
				"private_key": keyStatus,
				"api_url":     s.settings.APIURL,
				"store_path":  s.settings.StorePath,
			}
			if wallet != nil {
				data["wallet"] = wallet
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}

	root.AddCommand(login)
	root.AddCommand(logout)
	root.AddCommand(status)
	return root
}

func validateAPIKey(key string) error {
	if key == "" {
		return clierr.Validation("api_key", "API key is required: pass --api-key or set MOLTED_API_KEY")
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return clierr.Validation("api_key", "API key must not contain whitespace")
	}
	return nil
}

// privateKeySource mirrors the resolver's precedence without deriving.
func privateKeySource(settings config.Settings, st *store.Store) (string, error) {
	if strings.TrimSpace(settings.PrivateKey) != "" {
		if settings.PrivateKeySource != "" {
			return settings.PrivateKeySource, nil
		}
		return "settings", nil
	}
	v, ok, err := st.Get(store.NamePrivateKey)
	if err != nil {
		return "store", err
	}
	if ok && strings.TrimSpace(v) != "" {
		return "store", nil
	}
	if strings.TrimSpace(settings.PrivateKeyFile) != "" {
		return "file:" + settings.PrivateKeyFile, nil
	}
	if strings.TrimSpace(settings.KeystorePath) != "" {
		return "keystore:" + settings.KeystorePath, nil
	}
	return "", nil
}
