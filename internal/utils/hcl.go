package utils

import (
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// FormatHclResourceName ensures that resources are all 'snake_case'.
func FormatHclResourceName(resourceName string) string {
	return strings.ToLower(strings.ReplaceAll(resourceName, "-", "_"))
}

// TokensForStringTemplate creates properly formatted tokens for a template string (string with ${} interpolations)
func TokensForStringTemplate(template string) hclwrite.Tokens {
	return hclwrite.Tokens{
		&hclwrite.Token{Type: hclsyntax.TokenOQuote, Bytes: []byte(`"`)},
		&hclwrite.Token{Type: hclsyntax.TokenQuotedLit, Bytes: []byte(template)},
		&hclwrite.Token{Type: hclsyntax.TokenCQuote, Bytes: []byte(`"`)},
	}
}

// TokensForResourceReference creates tokens for a resource reference (e.g., "aws_sns_topic.notifications.arn")
func TokensForResourceReference(ref string) hclwrite.Tokens {
	return hclwrite.Tokens{
		&hclwrite.Token{Type: hclsyntax.TokenIdent, Bytes: []byte(ref)},
	}
}

// TokensForVarReference creates tokens for a Terraform variable reference (e.g., "var.my_variable")
func TokensForVarReference(varName string) hclwrite.Tokens {
	return hclwrite.Tokens{
		&hclwrite.Token{Type: hclsyntax.TokenIdent, Bytes: []byte("var." + varName)},
	}
}

// TokensForFunctionCall creates tokens for a function call
// e.g., file("${path.module}/document.yaml")
func TokensForFunctionCall(functionName string, args ...hclwrite.Tokens) hclwrite.Tokens {
	tokens := hclwrite.Tokens{
		&hclwrite.Token{Type: hclsyntax.TokenIdent, Bytes: []byte(functionName)},
		&hclwrite.Token{Type: hclsyntax.TokenOParen, Bytes: []byte("(")},
	}

	for i, arg := range args {
		if i > 0 {
			tokens = append(tokens, &hclwrite.Token{Type: hclsyntax.TokenComma, Bytes: []byte(", ")})
		}
		tokens = append(tokens, arg...)
	}

	tokens = append(tokens, &hclwrite.Token{Type: hclsyntax.TokenCParen, Bytes: []byte(")")})
	return tokens
}

// TokensForMap creates tokens for a map/object with string keys and token values
// e.g., { key1 = value1, key2 = value2 }
func TokensForMap(entries map[string]hclwrite.Tokens) hclwrite.Tokens {
	tokens := hclwrite.Tokens{
		&hclwrite.Token{Type: hclsyntax.TokenOBrace, Bytes: []byte("{")},
		&hclwrite.Token{Type: hclsyntax.TokenNewline, Bytes: []byte("\n")},
	}

	for key, valueTokens := range entries {
		tokens = append(tokens, &hclwrite.Token{Type: hclsyntax.TokenIdent, Bytes: []byte(key)})
		tokens = append(tokens, &hclwrite.Token{Type: hclsyntax.TokenEqual, Bytes: []byte(" = ")})
		tokens = append(tokens, valueTokens...)
		tokens = append(tokens, &hclwrite.Token{Type: hclsyntax.TokenNewline, Bytes: []byte("\n")})
	}

	tokens = append(tokens, &hclwrite.Token{Type: hclsyntax.TokenCBrace, Bytes: []byte("}")})
	return tokens
}

// TokensForHeredoc creates tokens for a heredoc string, used for embedded JSON like IAM
// policies and event patterns.
func TokensForHeredoc(content string) hclwrite.Tokens {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	return hclwrite.Tokens{
		&hclwrite.Token{Type: hclsyntax.TokenOHeredoc, Bytes: []byte("<<EOF\n")},
		&hclwrite.Token{Type: hclsyntax.TokenStringLit, Bytes: []byte(content)},
		&hclwrite.Token{Type: hclsyntax.TokenCHeredoc, Bytes: []byte("EOF")},
	}
}
