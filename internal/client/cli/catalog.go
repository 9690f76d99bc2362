package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/camerannonces/internal/models"
)

func (c *Cli) categoriesCommand() *cobra.Command {
	var withCount, refresh bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Lister les catégories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.maybeInvalidate(cmd, refresh); err != nil {
				return err
			}

			var (
				categories []models.Category
				err        error
			)
			if withCount {
				categories, err = c.app.Catalog.CategoriesWithCount(cmd.Context())
			} else {
				categories, err = c.app.Catalog.Categories(cmd.Context())
			}
			if err != nil {
				return err
			}

			for _, cat := range categories {
				line := fmt.Sprintf("%3d  %s %s", cat.ID, cat.Emoji, cat.Name)
				if withCount {
					line += fmt.Sprintf(" (%d)", cat.ListingsCount)
				}
				c.io.Println(strings.TrimRight(line, " "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withCount, "count", false, "afficher le nombre d'annonces")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignorer le cache")
	return cmd
}

func (c *Cli) citiesCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "cities",
		Short: "Lister les villes et leurs quartiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.maybeInvalidate(cmd, refresh); err != nil {
				return err
			}

			cities, err := c.app.Catalog.Cities(cmd.Context())
			if err != nil {
				return err
			}

			for _, city := range cities {
				c.io.Printf("%s (%s)\n", city.Name, city.Region)
				for _, q := range city.Quartiers {
					c.io.Printf("  - %s\n", q.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignorer le cache")
	return cmd
}

func (c *Cli) regionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "Lister les régions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			regions, err := c.app.Catalog.Regions(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range regions {
				c.io.Println(r)
			}
			return nil
		},
	}
}

func (c *Cli) listingsCommand() *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Dernières annonces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.app.Catalog.Listings(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			c.printPage(result)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "numéro de page (à partir de 0)")
	cmd.Flags().IntVar(&size, "size", models.DefaultPageSize, "annonces par page")
	return cmd
}

func (c *Cli) listingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listing <id>",
		Short: "Afficher une annonce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			listing, err := c.app.Catalog.Listing(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.render(listingTemplate, listing)
		},
	}
}

func (c *Cli) searchCommand() *cobra.Command {
	var filter models.SearchFilter

	cmd := &cobra.Command{
		Use:   "search [mot-clé]",
		Short: "Rechercher des annonces",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				filter.Keyword = args[0]
			}

			result, err := c.app.Catalog.Search(cmd.Context(), filter)
			if err != nil {
				return err
			}
			c.printPage(result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&filter.CategoryID, "category", 0, "identifiant de catégorie")
	flags.StringVar(&filter.City, "city", "", "ville")
	flags.StringVar(&filter.District, "district", "", "quartier")
	flags.StringVar(&filter.Region, "region", "", "région")
	flags.Int64Var(&filter.MinPrice, "min-price", 0, "prix minimum")
	flags.Int64Var(&filter.MaxPrice, "max-price", 0, "prix maximum")
	flags.BoolVar(&filter.UrgentOnly, "urgent", false, "annonces urgentes uniquement")
	flags.BoolVar(&filter.PremiumOnly, "premium", false, "annonces premium uniquement")
	flags.BoolVar(&filter.StorefrontOnly, "boutiques", false, "boutiques uniquement")
	flags.IntVar(&filter.Page, "page", 0, "numéro de page (à partir de 0)")
	flags.IntVar(&filter.Size, "size", models.DefaultPageSize, "annonces par page")
	return cmd
}

// maybeInvalidate сбрасывает кэш справочников по флагу --refresh
func (c *Cli) maybeInvalidate(cmd *cobra.Command, refresh bool) error {
	if !refresh {
		return nil
	}
	return c.app.Catalog.Invalidate(cmd.Context())
}

func (c *Cli) printPage(page *models.ListingPage) {
	if len(page.Listings) == 0 {
		c.io.Println("Aucune annonce trouvée.")
		return
	}

	for _, l := range page.Listings {
		c.printListingLine(l)
	}
	if page.TotalPages > 1 {
		c.io.Printf("\nPage %d/%d, %d annonces\n", page.CurrentPage+1, page.TotalPages, page.TotalElements)
	}
}

func (c *Cli) printListingLine(l models.Listing) {
	var badges []string
	if l.IsUrgent {
		badges = append(badges, "URGENT")
	}
	if l.IsPremium {
		badges = append(badges, "PREMIUM")
	}

	line := fmt.Sprintf("%5d  %-40s %16s  %s", l.ID, l.Title, formatPrice(l.Price), l.City)
	if len(badges) > 0 {
		line += "  [" + strings.Join(badges, ", ") + "]"
	}
	c.io.Println(line)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid listing id %q", s)
	}
	return id, nil
}
