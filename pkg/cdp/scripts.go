package cdp

import (
	"encoding/json"
	"fmt"

	"github.com/root4loot/worksnap/pkg/browser"
)

// matchJS returns the elements matching a selector list, narrowed to those
// whose visible text contains the given substring (if any). text is passed
// normalized, see browser.NormalizeText.
const matchJS = `function(sel, text) {
	return Array.from(document.querySelectorAll(sel)).filter(function(el) {
		if (!text) return true;
		var t = (el.innerText || el.textContent || '').toLowerCase().replace(/\s+/g, ' ').trim();
		return t.indexOf(text) !== -1;
	});
}`

const countJS = `(%s)(%s, %s).length`

const clickJS = `(function() {
	var el = (%s)(%s, %s)[0];
	if (!el) return false;
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;
})()`

// stableJS yields the element count once the document has loaded, -1 before.
const stableJS = `document.readyState === 'complete' ? document.getElementsByTagName('*').length : -1`

func locatorScript(format string, loc browser.Locator) (string, error) {
	sel, err := json.Marshal(loc.CSS)
	if err != nil {
		return "", err
	}
	text, err := json.Marshal(browser.NormalizeText(loc.Text))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, matchJS, sel, text), nil
}
