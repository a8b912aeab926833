// phishcheck runs the risk evaluation pipeline in-process against a single
// email address or URL and prints the verdict to the terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"phishguard/ai"
	"phishguard/intel"
	"phishguard/resolve"
	"phishguard/scan"
)

func main() {
	email := flag.String("email", "", "email address to evaluate")
	urlArg := flag.String("url", "", "URL to evaluate")
	jsonOut := flag.Bool("json", false, "print the raw result JSON")
	withIntel := flag.Bool("intel", false, "gather advisory whois/DNS intel")
	configPath := flag.String("config", "", "policy YAML path (overrides PHISHGUARD_CONFIG)")
	flag.Parse()

	if (*email == "") == (*urlArg == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -email or -url is required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	if *configPath == "" {
		*configPath = os.Getenv("PHISHGUARD_CONFIG")
	}

	policy, err := scan.LoadPolicy(*configPath)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	if err := scan.LoadBrandDB(os.Getenv("BRAND_DB")); err != nil {
		log.Fatalf("brand db: %v", err)
	}

	pipeline := scan.NewPipeline(policy)
	pipeline.Resolver = resolve.New(resolve.NewHTTPProbe(), resolve.Config{
		MaxHops:     policy.ResolverMaxHops,
		TotalBudget: policy.ResolverTotalBudget(),
		HopTimeout:  policy.ResolverHopTimeout(),
		Shorteners:  scan.ShortenerHosts(),
	})
	if classifier, err := ai.NewClassifier(); err == nil {
		pipeline.Classifier = classifier
	}
	if *withIntel {
		pipeline.Intel = intel.NewCollector(policy.IntelTimeout())
	}

	if !*jsonOut {
		printBanner()
	}

	ctx := context.Background()
	var result scan.FinalResult
	if *email != "" {
		result = pipeline.EvaluateEmail(ctx, *email)
	} else {
		result = pipeline.EvaluateURL(ctx, *urlArg)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}
	printResult(result)
}

func printBanner() {
	fig := figure.NewColorFigure("PHISHGUARD", "doom", "cyan", true)
	fig.Print()
	cyan := color.New(color.FgCyan)
	_, _ = cyan.Println("════════════════════════════════════════════════")
}

func printResult(res scan.FinalResult) {
	verdictColor := color.New(color.FgGreen, color.Bold)
	switch scan.BandSeverity(res.RiskBand) {
	case 2:
		verdictColor = color.New(color.FgRed, color.Bold)
	case 1:
		verdictColor = color.New(color.FgYellow, color.Bold)
	}

	fmt.Printf("\nIdentifier: %s\n", res.Identifier)
	_, _ = verdictColor.Printf("Verdict:    %s (score %d/100)\n", res.Verdict, res.DisplayScore)
	fmt.Printf("Source:     %s\n", res.VerdictSource)
	if res.Explanation != "" {
		fmt.Printf("Why:        %s\n", res.Explanation)
	}

	if len(res.Indicators) > 0 {
		fmt.Printf("\nLocal findings (heuristic score %d/100):\n", res.HeuristicScore)
		for _, ind := range res.Indicators {
			fmt.Printf("  [+%d] %s\n", ind.Weight, ind.Description)
		}
	}

	if res.RedirectChain != nil && res.RedirectChain.Length() > 1 {
		fmt.Println("\nRedirect chain:")
		for i, hop := range res.RedirectChain.Hops {
			line := fmt.Sprintf("  %d. %s", i+1, hop.URL)
			if hop.Status > 0 {
				line += fmt.Sprintf(" (%d)", hop.Status)
			}
			fmt.Println(line)
		}
		if res.RedirectChain.IsShortened {
			_, _ = color.New(color.FgYellow).Println("  note: original URL is a link shortener")
		}
		if res.RedirectChain.CycleDetected {
			_, _ = color.New(color.FgYellow).Println("  note: redirect cycle detected")
		}
		if res.RedirectChain.TruncatedByBudget {
			_, _ = color.New(color.FgYellow).Println("  note: chain truncated by hop/time budget")
		}
	}

	if res.DomainIntel != nil {
		fmt.Println("\nAdvisory domain intel:")
		if res.DomainIntel.WhoisAgeDays > 0 {
			fmt.Printf("  registered %d days ago (%s)\n", res.DomainIntel.WhoisAgeDays, res.DomainIntel.CreatedOn)
		}
		fmt.Printf("  MX: %v  SPF: %v  DMARC: %v\n",
			res.DomainIntel.MailPosture.HasMX,
			res.DomainIntel.MailPosture.HasSPF,
			res.DomainIntel.MailPosture.HasDMARC)
	}
}
