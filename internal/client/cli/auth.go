package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/camerannonces/internal/validation"
)

func (c *Cli) loginCommand() *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Se connecter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if phone == "" {
				if phone, err = c.io.ReadInput("Téléphone: "); err != nil {
					return fmt.Errorf("failed to read phone: %w", err)
				}
			}
			password, err := c.io.ReadPassword("Mot de passe: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			profile, err := c.app.Session.Login(cmd.Context(), validation.LoginForm{Phone: phone, Password: password})
			if err != nil {
				return err
			}

			c.io.Printf("✓ Connexion réussie. Bienvenue, %s!\n", profile.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "numéro de téléphone")
	return cmd
}

func (c *Cli) registerCommand() *cobra.Command {
	var form validation.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Créer un compte",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if form.Name == "" {
				if form.Name, err = c.io.ReadInput("Nom: "); err != nil {
					return fmt.Errorf("failed to read name: %w", err)
				}
			}
			if form.Phone == "" {
				if form.Phone, err = c.io.ReadInput("Téléphone: "); err != nil {
					return fmt.Errorf("failed to read phone: %w", err)
				}
			}
			if form.Password, err = c.io.ReadPassword("Mot de passe: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if form.ConfirmPassword, err = c.io.ReadPassword("Confirmer le mot de passe: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			profile, err := c.app.Session.Register(cmd.Context(), form)
			if err != nil {
				return err
			}

			c.io.Printf("✓ Compte créé. Bienvenue, %s!\n", profile.DisplayName)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&form.Name, "name", "", "nom affiché")
	flags.StringVarP(&form.Phone, "phone", "p", "", "numéro de téléphone")
	flags.StringVar(&form.Email, "email", "", "adresse e-mail")
	flags.StringVar(&form.City, "city", "", "ville")
	flags.StringVar(&form.District, "district", "", "quartier")
	return cmd
}

func (c *Cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Se déconnecter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			c.io.Println("✓ Déconnecté")
			return nil
		},
	}
}

func (c *Cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Afficher l'état de la session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := c.app.Session.State()
			if !state.IsAuthenticated() {
				c.io.Println("Statut: non connecté")
				return nil
			}

			c.io.Println("Statut: connecté")
			c.io.Printf("Utilisateur: %s (%s)\n", state.User.DisplayName, state.User.PhoneNumber)

			info, err := c.app.Auth.TokenInfo(cmd.Context())
			if err != nil {
				// Токен непрозрачный: срок неизвестен, но сессия действительна
				return nil
			}
			remaining := info.ExpiresIn(time.Now())
			if remaining > 0 {
				c.io.Printf("Jeton d'accès valide encore %s\n", remaining.Round(time.Second))
			} else {
				c.io.Println("Jeton d'accès expiré, il sera renouvelé à la prochaine requête")
			}
			return nil
		},
	}
}

func (c *Cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Afficher le profil",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := c.app.Session.RefreshProfile(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(profileTemplate, profile)
		},
	}
}

func (c *Cli) checkPhoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-phone <telephone>",
		Short: "Vérifier si un numéro est disponible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			available, err := c.app.Auth.CheckPhoneAvailability(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if available {
				c.io.Println("✓ Numéro disponible")
			} else {
				c.io.Println("✗ Numéro déjà utilisé")
			}
			return nil
		},
	}
}

func (c *Cli) resetPasswordCommand() *cobra.Command {
	var form validation.ResetPasswordForm

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Réinitialiser le mot de passe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if form.Phone == "" {
				if form.Phone, err = c.io.ReadInput("Téléphone: "); err != nil {
					return fmt.Errorf("failed to read phone: %w", err)
				}
			}
			if form.NewPassword, err = c.io.ReadPassword("Nouveau mot de passe: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if form.ConfirmPassword, err = c.io.ReadPassword("Confirmer le mot de passe: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			if err := c.app.Auth.ResetPassword(cmd.Context(), form); err != nil {
				return err
			}
			c.io.Println("✓ Mot de passe réinitialisé")
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.Phone, "phone", "p", "", "numéro de téléphone")
	return cmd
}

func (c *Cli) changePasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Changer le mot de passe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}

			oldPassword, err := c.io.ReadPassword("Mot de passe actuel: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			newPassword, err := c.io.ReadPassword("Nouveau mot de passe: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			confirm, err := c.io.ReadPassword("Confirmer le mot de passe: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			if err := c.app.Auth.ChangePassword(cmd.Context(), oldPassword, newPassword, confirm); err != nil {
				return err
			}
			c.io.Println("✓ Mot de passe modifié")
			return nil
		},
	}
}
