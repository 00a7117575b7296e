// Command storefront is a terminal front end for the JO ticketing backend:
// browse offers, manage the cart, log in, reserve and pay, display the
// ticket. Engines are constructed once here and passed down; nothing is
// reached through ambient globals.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/remsmachous/jo-storefront/internal/api"
	"github.com/remsmachous/jo-storefront/internal/cart"
	"github.com/remsmachous/jo-storefront/internal/checkout"
	"github.com/remsmachous/jo-storefront/internal/offers"
	"github.com/remsmachous/jo-storefront/internal/session"
	"github.com/remsmachous/jo-storefront/internal/store"
	"github.com/remsmachous/jo-storefront/pkg/config"
	"github.com/remsmachous/jo-storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})

	st, err := openStore(cfg)
	if err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.APIBaseURL, http.DefaultClient, st, log)
	carts := cart.NewEngine(st, log)
	sess := session.NewEngine(client, log)
	flow := checkout.NewFlow(client, st, log)

	ctx := context.Background()
	sess.Bootstrap(ctx)
	if user, ok := sess.User(); ok {
		fmt.Printf("Connecté en tant que %s\n", user.Username)
	}

	app := &app{
		cfg:    cfg,
		cart:   carts,
		sess:   sess,
		flow:   flow,
		client: client,
		in:     bufio.NewScanner(os.Stdin),
	}
	app.run(ctx)
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return store.NewRedisStore(client, "storefront"), nil
	}
	return store.NewFileStore(cfg.StateDir)
}

type app struct {
	cfg    config.Config
	cart   *cart.Engine
	sess   *session.Engine
	flow   *checkout.Flow
	client *api.Client
	in     *bufio.Scanner

	reservationID int64
}

func (a *app) run(ctx context.Context) {
	fmt.Println("jo-storefront — 'help' pour la liste des commandes")
	for {
		fmt.Print("> ")
		if !a.in.Scan() {
			return
		}
		fields := strings.Fields(a.in.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			fmt.Println("offers | cart | add <id> [qty] | set <id> <qty> | inc <id> | dec <id> | rm <id>")
			fmt.Println("login <user> <pass> | register <user> <email> <pass> | logout | whoami")
			fmt.Println("reserve <nom> <prenom> <email> | pay | ticket | mytickets | verify <token> | quit")
		case "quit", "exit":
			return
		case "offers":
			a.showOffers(ctx)
		case "cart":
			a.showCart()
		case "add":
			a.addOffer(ctx, args)
		case "set":
			if len(args) == 2 {
				qty, _ := strconv.Atoi(args[1])
				a.cart.SetQuantity(args[0], qty)
			}
			a.showCart()
		case "inc":
			if len(args) == 1 {
				a.cart.Increment(args[0])
			}
			a.showCart()
		case "dec":
			if len(args) == 1 {
				a.cart.Decrement(args[0])
			}
			a.showCart()
		case "rm":
			if len(args) == 1 {
				a.cart.Remove(args[0])
			}
			a.showCart()
		case "login":
			a.login(ctx, args)
		case "register":
			a.register(ctx, args)
		case "logout":
			a.sess.Logout()
			fmt.Println("Déconnecté.")
		case "whoami":
			if user, ok := a.sess.User(); ok {
				fmt.Printf("%s <%s>\n", user.Username, user.Email)
			} else {
				fmt.Println("Anonyme.")
			}
		case "reserve":
			a.reserve(ctx, args)
		case "pay":
			a.pay(ctx)
		case "ticket":
			a.showTicket()
		case "mytickets":
			a.myTickets(ctx)
		case "verify":
			if len(args) == 1 {
				a.verify(ctx, args[0])
			}
		default:
			fmt.Println("Commande inconnue. 'help' pour la liste.")
		}
	}
}

func (a *app) showOffers(ctx context.Context) {
	catalog, err := offers.Fetch(ctx, a.client, a.cfg.APIBaseURL)
	if err != nil {
		printErr(err)
		return
	}
	printSection("Solo", catalog.Solo)
	printSection("Duo", catalog.Duo)
	printSection("Famille", catalog.Famille)
}

func printSection(name string, list []offers.Offer) {
	if len(list) == 0 {
		return
	}
	fmt.Printf("-- %s --\n", name)
	for _, o := range list {
		fmt.Printf("  [%s] %s — %s €\n", o.ID, o.Title, o.Price)
	}
}

func (a *app) addOffer(ctx context.Context, args []string) {
	if len(args) == 0 {
		return
	}
	qty := 1
	if len(args) > 1 {
		qty, _ = strconv.Atoi(args[1])
	}
	catalog, err := offers.Fetch(ctx, a.client, a.cfg.APIBaseURL)
	if err != nil {
		printErr(err)
		return
	}
	for _, o := range append(append(catalog.Solo, catalog.Duo...), catalog.Famille...) {
		if o.ID == args[0] {
			a.cart.Add(cart.Line{ID: o.ID, Title: o.Title, UnitPrice: o.Price}, qty)
			a.showCart()
			return
		}
	}
	fmt.Println("Offre introuvable.")
}

func (a *app) showCart() {
	items := a.cart.Items()
	if len(items) == 0 {
		fmt.Println("Panier vide.")
		return
	}
	for _, l := range items {
		fmt.Printf("  [%s] %s ×%d — %s €\n", l.ID, l.Title, l.Qty, l.UnitPrice)
	}
	fmt.Printf("  Total: %d place(s), %s €\n", a.cart.TotalQuantity(), a.cart.TotalAmount())
}

func (a *app) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("login <user> <pass>")
		return
	}
	user, err := a.sess.Login(ctx, api.Credentials{Username: args[0], Password: args[1]})
	if err != nil {
		printErr(err)
		return
	}
	fmt.Printf("Bienvenue %s.\n", user.Username)
}

func (a *app) register(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Println("register <user> <email> <pass>")
		return
	}
	if verr := session.ValidatePassword(args[2]); verr != nil {
		for _, e := range verr.Errors {
			fmt.Println(" -", e)
		}
		return
	}
	if _, err := a.sess.Register(ctx, api.Registration{Username: args[0], Email: args[1], Password: args[2]}); err != nil {
		printErr(err)
		return
	}
	fmt.Println("Compte créé.")
}

func (a *app) reserve(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Println("reserve <nom> <prenom> <email>")
		return
	}
	info := api.ClientInfo{Nom: args[0], Prenom: args[1], Email: args[2]}
	id, err := a.flow.Reserve(ctx, info, a.cart.Items())
	if err != nil {
		printErr(err)
		return
	}
	a.reservationID = id
	fmt.Printf("Réservation #%d créée. 'pay' pour régler.\n", id)
}

func (a *app) pay(ctx context.Context) {
	if a.reservationID == 0 {
		fmt.Println("Aucune réservation en cours.")
		return
	}
	ticket, err := a.flow.Pay(ctx, a.reservationID, a.cart.Items())
	if err != nil {
		printErr(err)
		return
	}
	a.cart.Clear()
	a.reservationID = 0
	fmt.Printf("Paiement accepté. Billet #%d — QR: %s\n", ticket.ID, ticket.QRURL)
}

func (a *app) showTicket() {
	snapshot, err := a.flow.LastTicket()
	if err != nil {
		fmt.Println("Aucun billet récent.")
		return
	}
	fmt.Printf("Billet #%d (réservation #%d)\n", snapshot.ID, snapshot.ReservationID)
	fmt.Printf("  QR: %s\n", snapshot.QRURL)
	fmt.Printf("  %d place(s), total %s €\n", snapshot.Summary.Places, snapshot.Summary.Total)
}

func (a *app) myTickets(ctx context.Context) {
	tickets, err := a.client.MyTickets(ctx)
	if err != nil {
		printErr(err)
		return
	}
	if len(tickets) == 0 {
		fmt.Println("Aucun billet.")
		return
	}
	for _, t := range tickets {
		fmt.Printf("  Billet #%d (réservation #%d) — %s\n", t.ID, t.ReservationID, t.CreatedAt)
	}
}

func (a *app) verify(ctx context.Context, token string) {
	out, err := a.client.Verify(ctx, token)
	if err != nil {
		printErr(err)
		return
	}
	if out.Valid {
		fmt.Println("Billet valide.", out.Meta)
	} else {
		fmt.Println("Billet invalide.")
	}
}

func printErr(err error) {
	var he *api.HTTPError
	if errors.As(err, &he) && he.Detail() != "" {
		fmt.Println("Erreur:", he.Detail())
		return
	}
	fmt.Println("Erreur:", err)
}
