package stack

import (
	"fmt"
	"strconv"
)

// RedirectFunctionCode returns the CloudFront Function source run on viewer requests.
// Requests for www.<domain> get a 301 to https://<domain><uri> with the query string kept;
// everything else passes through.
func RedirectFunctionCode(domain string) string {
	return fmt.Sprintf(`function handler(event) {
  var request = event.request;
  var host = request.headers.host ? request.headers.host.value : "";
  if (host === %s) {
    var location = %s + request.uri;
    var query = encodeQuery(request.querystring);
    if (query) {
      location += "?" + query;
    }
    return {
      statusCode: 301,
      statusDescription: "Moved Permanently",
      headers: { location: { value: location } }
    };
  }
  return request;
}

function encodeQuery(qs) {
  var parts = [];
  for (var key in qs) {
    var entry = qs[key];
    var values = entry.multiValue ? entry.multiValue : [entry];
    for (var i = 0; i < values.length; i++) {
      parts.push(values[i].value ? key + "=" + values[i].value : key);
    }
  }
  return parts.join("&");
}
`, strconv.Quote("www."+domain), strconv.Quote("https://"+domain))
}
