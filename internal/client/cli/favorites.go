package cli

import (
	"github.com/spf13/cobra"
)

func (c *Cli) favoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Gérer les favoris",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lister les favoris",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			page, err := c.app.Catalog.Favorites(cmd.Context())
			if err != nil {
				return err
			}
			c.printPage(page)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Ajouter une annonce aux favoris",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.Catalog.AddFavorite(cmd.Context(), id); err != nil {
				return err
			}
			c.io.Printf("✓ Annonce %d ajoutée aux favoris\n", id)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Retirer une annonce des favoris",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.Catalog.RemoveFavorite(cmd.Context(), id); err != nil {
				return err
			}
			c.io.Printf("✓ Annonce %d retirée des favoris\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func (c *Cli) myListingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "my-listings",
		Short: "Mes annonces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			page, err := c.app.Catalog.MyListings(cmd.Context())
			if err != nil {
				return err
			}
			c.printPage(page)
			return nil
		},
	}
}
